package delay_test

import (
	"fmt"

	"github.com/matzehuels/bufferopt/pkg/delay"
)

func ExampleStage() {
	block := delay.Time{Rise: 1, Fall: 0.8}
	drive := delay.Time{Rise: 0.6, Fall: 0.5}

	d := delay.Stage(block, drive, 2)
	fmt.Println(d, d.Worst())
	// Output: (2.2,1.8) 1.8
}
