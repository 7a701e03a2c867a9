// Command forecast records the overnight longwave broadcast unattended:
// it scans remote receivers for the best signal, records the programme,
// locates the closedown anthem, trims the recording, and publishes it.
package main
