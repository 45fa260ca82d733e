// Package falconcfg parses and validates Falcon's configuration: the
// recognized command-line flags, plus an optional HCL config file that
// layers in (and is overridden by) them.
package falconcfg
