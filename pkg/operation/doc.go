/*
Package operation implements the mirror run: list, plan, then transfer.

	+-------------+
	|   Lister    |
	|  (lsjson)   |
	+------+------+
	       |
	+------+------+
	|   Planner   |
	| (BatchPlan) |
	+------+------+
	       |
	+------+------+
	|   Runner    |
	|   (copy)    |
	+------+------+

🎯 Purpose:
- Turns one remote run directory into a local mirror
- Transfers one batch per (source directory, destination directory) pair
- Keeps going when a single batch fails

🔄 Flow:
1. The lister fetches the recursive listing of <root>/<run>
2. The planner groups the files into batches, skipping what does not belong
3. The plan is optionally sliced to a [start, stop) range
4. The runner hands each batch to rclone through a temporary file list
5. Each outcome is reported to the optional ledger

⚡ Failure rules:
- A listing failure aborts before anything is transferred
- A failed batch is logged and the run continues
- A shutdown request stops the run after the in-flight batch has drained
- File lists are always removed, whatever happened to the batch
*/
package operation
