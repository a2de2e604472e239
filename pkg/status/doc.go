/*
Package status records what a housekeep operation did.

	+-----------+       +-----------+       +-----------+
	| Operation | ----> |  Result   | ----> |  Format   |
	| (backup,  |  Add  | (counts,  |       | (console  |
	|  clean..) |       |  actions) |       |  summary) |
	+-----------+       +-----------+       +-----------+

🎯 Purpose:
- One Result per operation run, returned to the caller even on partial failure
- One Action per path the operation looked at
- Console rendering of actions and summaries

🔄 Counting:
  - archived, copied, removed, would_remove and moved count as processed
  - skipped, excluded and retained count as skipped
  - failed counts as failed and its error is kept on the Action

📊 Bytes:
  - BytesBefore is the size of what the operation acted on
  - BytesAfter is what remains on disk for it afterwards

🔍 Example:

	res := status.NewResult("clean", time.Now())
	res.Add(status.Action{Status: status.StatusRemoved, Path: p, Size: 42})
	fmt.Print(status.FormatSummary(res))
*/
package status
