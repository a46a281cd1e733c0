// Rumpusctl queries the Rumpus CE API from the command line and queues
// polls for a running tracker.
//
// Usage:
//
//	# Describe the delegation key
//	rumpusctl key
//
//	# Search players on the beta API
//	rumpusctl players --beta -p sort=-createdAt -p limit=5
//
//	# Show the request a level search would make
//	rumpusctl levels -p levelIds=best,epic -p includeRecords=true --dry-run
//
//	# Ask the tracker to poll a watch
//	rumpusctl trigger creators
package main

func main() {
	Execute()
}
