// Command simkernel is the demo entry point for the fuel-cycle
// simulation kernel: it loads a YAML topology of traders, wires them
// into the Dynamic Resource Exchange, and drives the time-stepped
// scheduler to completion.
package main

func main() {
	Execute()
}
