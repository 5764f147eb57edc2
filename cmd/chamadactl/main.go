// Command chamadactl is the operator CLI: bulk enrollment, one-off
// recognition and gallery inspection against the same database as the API.
package main

func main() {
	Execute()
}
