// udiscovery is a local service discovery daemon. It keeps a tree of
// nodes addressed by URI, expires nodes whose ttl runs out and notifies
// registered observers about changes below the URIs they watch.
package main

import "github.com/iScript/udiscovery/discoverymain"

func main() {
	discoverymain.Main()
}
