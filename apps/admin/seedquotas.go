package main

import "github.com/krodrigz/matricula/core/admission"

// cliActor stands in for the operator; the CLI runs with full rights.
var cliActor = admission.Actor{
	ID:    "admin-cli",
	Name:  "admin",
	Roles: []string{admission.RoleAdmin},
}

func (cli *commandLine) seedQuotas() error {
	created, err := cli.quotaSvc.Seed(cliActor)
	if err != nil {
		return err
	}
	logger.Printf("created %d quota rows", created)
	return nil
}
