// Package process exposes allow-listed local commands as agent tools.
//
// Tools are declared in a tools.yaml (or .json) file:
//
//	tools:
//	  - name: weather
//	    description: Current weather for a city
//	    command: ./scripts/weather.sh
//	    parameters:
//	      city: string
//	    timeout: 5s
//
// Arguments reach the process as LATTICE_ARG_<NAME> environment variables and
// the trimmed stdout becomes the tool output.
package process
