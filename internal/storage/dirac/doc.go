/*
Package dirac implements the command-execution layer for the DIRAC
data-management toolset.

The external tools are the real wire protocol here: every operation shells
out to a dirac-dms-* program (optionally through the lb-dirac environment
wrapper) and interprets the captured text output. The package keeps that
textual contract in one place:

  - toolchain.go detects which tool family is available on PATH
  - client.go runs commands with retry, capture and error-wrapping policy
  - output.go holds the literal markers and line patterns the tools emit

Callers above this package (pkg/remote) only compose tool invocations and
interpret parsed results.
*/
package dirac
