// Package env provides a unified method to create environment for envexec.
//
// Every environment is a fresh JavaScript runtime with its own global object,
// built-ins and heap accounting. Nothing is shared between two environments.
//
// With Isolate set (linux only) each environment lives in its own host
// process: the memory ceiling is a data segment limit of that process and a
// run that outlives its timeout gets the process killed. Without it the
// runtime shares the server process, the ceiling is enforced by sampling the
// process heap and built-ins that do not check for interrupts can exceed both
// limits, so such builders must not run more than one environment at a time.
package env
