package cmdflags

import (
	"github.com/andrebq/jukebox/sessions"
	"github.com/urfave/cli/v2"
)

func StoreDir(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store",
		Aliases:     []string{"s"},
		Usage:       "Directory that holds the account database",
		Destination: out,
		Value:       *out,
	}
}

func SecretEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = sessions.SecretEnvVar
	}
	return &cli.StringFlag{
		Name:        "secret-envvar-name",
		Usage:       "Name of the environment variable that holds the session signing secret. The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}
