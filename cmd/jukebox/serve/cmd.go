package serve

import (
	"net/http"
	"os"

	"github.com/andrebq/jukebox/accounts"
	"github.com/andrebq/jukebox/internal/cmdflags"
	"github.com/andrebq/jukebox/internal/httpserver"
	"github.com/andrebq/jukebox/sessions"
	"github.com/andrebq/jukebox/sessions/api"
	"github.com/julienschmidt/httprouter"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7070"
	storeDir := "jukebox-data"
	secretEnvVar := ""
	publicDir := "public"
	appDir := "app"
	loginPath := "/login.html"
	hashCost := sessions.DefaultHashCost
	allowHTTPCookie := false
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the jukebox auth service, gating the player area behind a session cookie",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the HTTP server",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.StoreDir(&storeDir),
			cmdflags.SecretEnvVar(&secretEnvVar),
			&cli.StringFlag{
				Name:        "public-dir",
				Usage:       "Directory with the unprotected assets (login/sign-up surfaces)",
				Value:       publicDir,
				Destination: &publicDir,
			},
			&cli.StringFlag{
				Name:        "app-dir",
				Usage:       "Directory with the player assets, only reachable with a valid session",
				Value:       appDir,
				Destination: &appDir,
			},
			&cli.StringFlag{
				Name:        "login-path",
				Usage:       "Path denied requests are redirected to",
				Value:       loginPath,
				Destination: &loginPath,
			},
			&cli.IntFlag{
				Name:        "hash-cost",
				Usage:       "bcrypt cost used when hashing new passwords",
				Value:       hashCost,
				Destination: &hashCost,
			},
			&cli.BoolFlag{
				Name:        "allow-http-cookie",
				Usage:       "Drop the Secure flag from the session cookie (local development only)",
				Value:       allowHTTPCookie,
				Destination: &allowHTTPCookie,
			},
		},
		Action: func(ctx *cli.Context) error {
			secret, err := sessions.SecretFromEnv(secretEnvVar, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			keeper, err := sessions.NewKeeper(secret)
			if err != nil {
				return err
			}
			store, err := accounts.Open(ctx.Context, storeDir, true)
			if err != nil {
				return err
			}
			defer store.Close()
			denylist := sessions.InMemoryDenyList(sessions.BootstrapValidity)

			router := httprouter.New()
			api.NewEndpoints(store, keeper, denylist, hashCost, allowHTTPCookie).Routes(router)

			realm := api.NewRealm(keeper, denylist, loginPath, allowHTTPCookie)
			router.Handler("GET", "/app/*filepath", realm.Protect(
				http.StripPrefix("/app", http.FileServer(http.Dir(appDir)))))

			// everything else is the public surface, no session required
			router.NotFound = http.FileServer(http.Dir(publicDir))

			return httpserver.Serve(ctx.Context, bindAddr, router)
		},
	}
}
