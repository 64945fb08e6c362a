package main

import (
	"fmt"
	"strings"

	echoapi "github.com/krodrigz/matricula/apps/api/echo"
	"github.com/krodrigz/matricula/core/admission"
)

func (cli *commandLine) mkToken(userID, roles string) error {
	actor := admission.Actor{ID: userID}
	if roles != "" {
		for _, role := range strings.Split(roles, ",") {
			actor.Roles = append(actor.Roles, strings.TrimSpace(role))
		}
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetActorClaims(cli.conf, actor))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
