package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ApplyWriteMessage]          = (*ApplyWriteCommand)(nil)
	_ gocmd.Commander[InvalidatePrincipalMessage] = (*InvalidatePrincipalCommand)(nil)
)
