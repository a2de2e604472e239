/*
Package operation is the command surface of housekeep: one Operator with a
method per maintenance action, and a Runner that executes configured jobs.

	+-------------+      +-------------+
	|   Runner    | ---> |  Operator   |
	|   (Jobs)    |      |  (Actions)  |
	+------+------+      +------+------+
	                            |
	        +-------------------+-------------------+
	        |                   |                   |
	+-------+------+   +--------+------+   +--------+------+
	|   archive    |   |   retention   |   |   organize    |
	| (backup)     |   |   (clean)     |   |   (organize)  |
	+--------------+   +---------------+   +---------------+

🎯 Purpose:
- Turns requests into calls on the archive, retention and organize packages
- Shares one operation log sink and clock across every action
- Runs config jobs in order, or in parallel when their trees are disjoint

⚡ Concurrency:
Each action is synchronous. The Runner only parallelizes jobs whose
directories do not contain one another and reports ErrOverlappingJobs
otherwise. A failing job never stops the others.

🔍 Example:

	op, err := operation.New(operation.Options{Sink: sink})
	if err != nil {
		return err
	}
	res, err := op.Clean(ctx, operation.CleanRequest{
		Directory:     "/tmp/scratch",
		Pattern:       "*.tmp",
		OlderThanDays: retention.Days(7),
		DryRun:        true,
	})
*/
package operation
