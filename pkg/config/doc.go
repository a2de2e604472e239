/*
Package config loads housekeep job files.

	            +-------------+
	            |   Config    |
	            |   (Jobs)    |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+-----+
	|   YAML   | |   HCL    | |   JSON    |
	|  Parser  | |  Parser  | | (+ JSONC) |
	+----------+ +----------+ +-----------+

🎯 Purpose:
- Describes named backup, clean and organize jobs
- Carries optional cron schedules and a shared extension rule table
- Picks a parser by file extension

🔄 Flow:
1. Reads the file
2. Parses format-specific syntax into one model
3. Validates struct tags, then job semantics (one action per job, cron specs, patterns, rules)

🔍 Example:

	jobs:
	  - name: downloads
	    schedule: "@daily"
	    organize:
	      dir: ~/Downloads
	  - name: tmp
	    clean:
	      dir: /tmp/scratch
	      pattern: "*.tmp"
	      older_than_days: 7
*/
package config
