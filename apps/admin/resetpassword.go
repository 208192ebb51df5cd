package main

import "context"

func (cli *commandLine) resetPassword(acc, pwd string) error {
	return cli.accSvc.SetPassword(context.Background(), acc, pwd)
}
