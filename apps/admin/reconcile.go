package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) reconcile() error {
	n, err := cli.classSvc.Reconcile(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d class counters fixed\n", n)
	return nil
}
