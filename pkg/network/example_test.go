package network_test

import (
	"fmt"

	"github.com/matzehuels/bufferopt/pkg/network"
)

func ExampleNetwork_TopoOrder() {
	net := network.New("chain")
	a, _ := net.AddInput("a")
	n, _ := net.AddNode(network.Node{Name: "n"}, a)
	net.AddOutput("o", n)

	for _, id := range net.TopoOrder() {
		nd, _ := net.Node(id)
		fmt.Println(nd.Name)
	}
	// Output:
	// a
	// n
	// o
}
