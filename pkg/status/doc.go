/*
Package status renders plans, run summaries and run history for the console.

	+-------------+      +-------------+      +-------------+
	|  BatchPlan  |      |   Summary   |      |   Ledger    |
	+------+------+      +------+------+      +------+------+
	       |                    |                    |
	       +--------------------+--------------------+
	                            |
	                     +------+------+
	                     |   status    |
	                     |  (tables)   |
	                     +-------------+

🎯 Purpose:
- Shows what a sync would transfer before anything is copied
- Summarizes which batches failed and why
- Lists past runs recorded in the history ledger

Nothing in here affects a run; it only reads the values it is given.
*/
package status
