package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/taekwondodev/go-BaaS-Client/internal/api"
	"github.com/taekwondodev/go-BaaS-Client/internal/config"
	"github.com/taekwondodev/go-BaaS-Client/internal/controller"
	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
)

var credentialFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "password",
		Aliases:  []string{"p"},
		Usage:    "Account password",
		EnvVars:  []string{"BAAS_PASSWORD"},
		Required: true,
	},
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the database connection",
		Action: withContainer(func(c *cli.Context, app *container) error {
			if !app.client.CheckConnection(c.Context) {
				return cli.Exit("connection failed", 1)
			}
			fmt.Println("ok")
			return nil
		}),
	}
}

func signUpCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account with email and password",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "User metadata as a JSON object",
			},
			&cli.StringFlag{
				Name:  "redirect-to",
				Usage: "Where the confirmation link sends the user",
			},
		}, credentialFlags...),
		Action: withContainer(func(c *cli.Context, app *container) error {
			data, err := parseObject(c.String("data"))
			if err != nil {
				return err
			}
			opts := service.SignUpOptions{Data: data, EmailRedirectTo: c.String("redirect-to")}

			res, err := track(c.Context, app, func(ctx context.Context) (*dto.AuthResponse, error) {
				return app.client.Auth().SignUp(ctx, c.String("email"), c.String("password"), opts)
			})
			if err != nil {
				return err
			}
			return printJSON(res.User)
		}),
	}
}

func signInCommand() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in with email and password",
		Flags: credentialFlags,
		Action: withContainer(func(c *cli.Context, app *container) error {
			res, err := track(c.Context, app, func(ctx context.Context) (*dto.AuthResponse, error) {
				return app.client.Auth().SignIn(ctx, c.String("email"), c.String("password"))
			})
			if err != nil {
				return err
			}
			return printJSON(res.User)
		}),
	}
}

func signInOAuthCommand() *cli.Command {
	return &cli.Command{
		Name:      "signin-oauth",
		Usage:     "Sign in with an OAuth provider and wait for the redirect",
		ArgsUsage: "PROVIDER",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scopes",
				Usage: "Space separated provider scopes",
			},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			provider := c.Args().First()
			if provider == "" {
				return cli.Exit("provider is required", 1)
			}

			origin, err := config.LoadOriginConfig(app.cfg)
			if err != nil {
				return err
			}

			res, err := app.client.Auth().SignInWithOAuth(c.Context, provider, service.OAuthOptions{
				RedirectTo: origin.URL,
				Scopes:     c.String("scopes"),
			})
			if err != nil {
				return err
			}
			fmt.Println("Open this URL to continue:")
			fmt.Println(res.URL)

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			var signedIn *dto.AuthResponse
			ctrl := controller.New(app.client.Auth(), app.client, func(res *dto.AuthResponse) {
				signedIn = res
				cancel()
			})
			router := api.SetupRoutes(api.Routes{
				CallbackPath: origin.CallbackPath,
				Controller:   ctrl,
				Gatherer:     app.registry,
				Logger:       app.log,
			})

			if err := api.NewServer(origin.Addr, router, app.log).StartWithGracefulShutdown(ctx); err != nil {
				return err
			}
			if signedIn == nil {
				return cli.Exit("sign-in was not completed", 1)
			}
			return printJSON(signedIn.User)
		}),
	}
}

func signOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "Sign out and forget the stored session",
		Action: withContainer(func(c *cli.Context, app *container) error {
			return app.client.Auth().SignOut(c.Context)
		}),
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Show the current session, refreshing it when it is about to expire",
		Action: withContainer(func(c *cli.Context, app *container) error {
			session, err := app.client.Session(c.Context)
			if err != nil {
				return err
			}
			if session == nil {
				fmt.Println("not signed in")
				return nil
			}
			return printJSON(map[string]any{
				"expires_at": session.ExpiresAt,
				"user":       session.User,
			})
		}),
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Show or update the signed-in user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "New email"},
			&cli.StringFlag{Name: "password", Usage: "New password", EnvVars: []string{"BAAS_NEW_PASSWORD"}},
			&cli.StringFlag{Name: "data", Usage: "User metadata as a JSON object"},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			if !c.IsSet("email") && !c.IsSet("password") && !c.IsSet("data") {
				user, err := app.client.Auth().GetUser(c.Context)
				if err != nil {
					return err
				}
				return printJSON(user)
			}

			data, err := parseObject(c.String("data"))
			if err != nil {
				return err
			}
			user, err := app.client.Auth().UpdateUser(c.Context, dto.UpdateUserRequest{
				Email:    c.String("email"),
				Password: c.String("password"),
				Data:     data,
			})
			if err != nil {
				return err
			}
			return printJSON(user)
		}),
	}
}

func resetPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset-password",
		Usage:     "Send a password recovery email",
		ArgsUsage: "EMAIL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "redirect-to", Usage: "Where the recovery link sends the user"},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			email := c.Args().First()
			if email == "" {
				return cli.Exit("email is required", 1)
			}
			if err := app.client.Auth().ResetPassword(c.Context, email, c.String("redirect-to")); err != nil {
				return err
			}
			fmt.Println("recovery email sent")
			return nil
		}),
	}
}
