package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goliatone/go-print"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-storefront-auth"
)

type command struct {
	summary string
	run     func(ctx context.Context, app *App, args []string) error
}

var commands = map[string]command{
	"login":       {"sign in and store the access token", cmdLogin},
	"register":    {"create an account and sign in", cmdRegister},
	"logout":      {"clear the local session and notify the API", cmdLogout},
	"me":          {"show the current session", cmdMe},
	"create-user": {"create an account as an admin", cmdCreateUser},
	"dashboard":   {"show the dashboard landing page and menu", cmdDashboard},
	"products":    {"list catalog products", cmdProducts},
	"cart":        {"show the current user's cart", cmdCart},
	"orders":      {"show orders for the current user or seller", cmdOrders},
}

var errNotSignedIn = errors.New("not signed in, run `storefront login` first")

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cmdLogin(ctx context.Context, app *App, args []string) error {
	var p auth.LoginPayload
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVar(&p.Email, "email", "", "account email")
	fs.StringVar(&p.Password, "password", os.Getenv("STOREFRONT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := app.session.Login(ctx, p)
	if err != nil {
		return err
	}

	return output(map[string]any{
		"user":    user,
		"landing": user.Role.DashboardPath(),
	})
}

func cmdRegister(ctx context.Context, app *App, args []string) error {
	var p auth.RegisterPayload
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	fs.StringVar(&p.Username, "username", "", "display name")
	fs.StringVar(&p.Email, "email", "", "account email")
	fs.StringVar(&p.Password, "password", os.Getenv("STOREFRONT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := app.session.Register(ctx, p)
	if err != nil {
		return err
	}

	return output(map[string]any{
		"user":    user,
		"landing": user.Role.DashboardPath(),
	})
}

func cmdLogout(ctx context.Context, app *App, _ []string) error {
	if err := app.session.Logout(ctx); err != nil {
		return err
	}
	return output(app.session.State())
}

func cmdMe(_ context.Context, app *App, _ []string) error {
	return output(app.session.State())
}

func cmdCreateUser(ctx context.Context, app *App, args []string) error {
	var p auth.CreateUserPayload
	var role string
	fs := pflag.NewFlagSet("create-user", pflag.ContinueOnError)
	fs.StringVar(&p.Username, "username", "", "display name")
	fs.StringVar(&p.Email, "email", "", "account email")
	fs.StringVar(&role, "role", string(auth.RoleCustomer), "one of customer, seller, admin, superAdmin")
	fs.StringVar(&p.Password, "password", os.Getenv("STOREFRONT_PASSWORD"), "initial password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if p.Role, err = auth.ResolveRole(role); err != nil {
		return err
	}

	current := app.session.State()
	if current.User == nil {
		return errNotSignedIn
	}
	if !current.User.Role.CanCreateUsers() {
		app.logger.Info("create-user requested by %s, the API will decide", current.User.Role)
	}

	user, err := app.session.CreateUser(ctx, p)
	if err != nil {
		return err
	}
	return output(user)
}

func cmdDashboard(ctx context.Context, app *App, _ []string) error {
	gate := auth.NewViewGate(app.cfg.Auth)
	decision, err := gate.Await(ctx, app.session)
	if err != nil {
		return err
	}

	if decision.Action != auth.GateRender {
		return output(decision)
	}

	role := app.session.State().Role()
	return output(map[string]any{
		"landing": role.DashboardPath(),
		"menu":    auth.DashboardMenu(role),
	})
}

func cmdProducts(ctx context.Context, app *App, args []string) error {
	var q auth.ProductQuery
	fs := pflag.NewFlagSet("products", pflag.ContinueOnError)
	fs.StringSliceVar(&q.Category, "category", nil, "categories")
	fs.StringSliceVar(&q.Brand, "brand", nil, "brands")
	fs.StringSliceVar(&q.Size, "size", nil, "sizes")
	fs.StringSliceVar(&q.Color, "color", nil, "colors")
	fs.StringVar(&q.Sort, "sort", "", "sort order")
	fs.StringVar(&q.Q, "q", "", "search text")
	fs.IntVar(&q.Page, "page", 1, "page")
	fs.IntVar(&q.Limit, "limit", 20, "page size")
	maxPrice := fs.Float64("max-price", 0, "maximum price, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *maxPrice > 0 {
		q.MaxPrice = maxPrice
	}

	page, err := app.products.List(ctx, q)
	if err != nil {
		return err
	}
	return output(page)
}

func cmdCart(ctx context.Context, app *App, _ []string) error {
	user := app.session.State().User
	if user == nil {
		return errNotSignedIn
	}

	items, err := app.cart.Get(ctx, user.ID)
	if err != nil {
		return err
	}
	return output(items)
}

func cmdOrders(ctx context.Context, app *App, _ []string) error {
	user := app.session.State().User
	if user == nil {
		return errNotSignedIn
	}

	var orders []auth.Order
	var err error
	if user.Role == auth.RoleSeller {
		orders, err = app.orders.ForSeller(ctx, user.ID)
	} else {
		orders, err = app.orders.ForUser(ctx, user.ID)
	}
	if err != nil {
		return err
	}
	return output(orders)
}

func output(v any) error {
	_, err := fmt.Fprintln(os.Stdout, print.MaybePrettyJSON(v))
	return err
}
