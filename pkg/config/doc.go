/*
Package config manages configuration parsing and validation for gribsync.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +-----------+-----------+-----------+
	      |           |           |           |
	+-----+-----+ +---+---+ +-----+-----+ +---+---+
	|   YAML    | | JSON  | |    HCL    | |  env  |
	|  Parser   | |Parser | |  Parser   | | .env  |
	+-----------+ +-------+ +-----------+ +-------+

🎯 Purpose:
- Loads the remote, run, destination and transfer settings
- Fills defaults for everything that has a sensible one
- Lets credentials come from a .env file or GRIBSYNC_* variables

🔄 Precedence (later wins):
1. Defaults (Default)
2. Config file, chosen by extension
3. .env file and GRIBSYNC_* environment variables
4. Command line flags, applied by the caller before Validate

⚡ Durations are written as Go duration strings ("45m", "90s") and parsed
by Validate.
*/
package config
