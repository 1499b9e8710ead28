package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/handler/shell"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/prefs"
	"storefront/internal/service"
	"storefront/internal/version"
	"storefront/internal/view"

	"go.opentelemetry.io/otel"
)

var CliTracer = otel.Tracer("Cli")

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var errUsage = errors.New("usage")

// App runs one storefront command per process.
type App struct {
	Products *service.ProductService
	Cart     *service.CartService
	Health   *service.HealthService
	Prefs    *prefs.Store

	In  io.Reader
	Out io.Writer
	Err io.Writer

	view *view.Renderer
}

type subcommand struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]subcommand {
	return map[string]subcommand{
		"list":     {"list [-category C]", a.list},
		"show":     {"show ID", a.show},
		"search":   {"search KEYWORD", a.search},
		"category": {"category NAME", a.category},
		"image":    {"image ID [-o FILE]", a.image},
		"add":      {"add -name N -brand B -price P -category C [-stock N] [-release YYYY-MM-DD] [-available] [-description D] -image FILE", a.add},
		"update":   {"update ID [-name N] [-brand B] [-price P] [-category C] [-stock N] [-release D] [-available=BOOL] [-description D]", a.update},
		"delete":   {"delete ID", a.delete},
		"theme":    {"theme [toggle|light|dark]", a.theme},
		"health":   {"health", a.health},
		"shell":    {"shell", a.shell},
		"version":  {"version", a.version},
	}
}

// Run dispatches args[0] and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	a.view = view.NewRenderer(a.Out, a.Prefs.Theme())

	cmds := a.commands()
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(cmds)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}

	name := args[0]
	cmd, ok := cmds[name]
	if !ok {
		fmt.Fprintf(a.Err, "unknown command %q\n", name)
		a.usage(cmds)
		return ExitUsage
	}

	ctx, span := CliTracer.Start(ctx, "Cli."+name)
	defer span.End()
	logger.Debug(ctx, "Command", slog.String("command", name))

	err := cmd.run(ctx, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(a.Err, "usage: storefront %s\n", cmd.usage)
		return ExitUsage
	default:
		span.RecordError(err)
		a.report(err)
		return ExitFailure
	}
}

func (a *App) usage(cmds map[string]subcommand) {
	names := make([]string, 0, len(cmds))
	for n := range cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(a.Err, "usage: storefront COMMAND [ARGS]")
	for _, n := range names {
		fmt.Fprintf(a.Err, "  %s\n", cmds[n].usage)
	}
}

func (a *App) report(err error) {
	switch {
	case service.IsValidation(err):
		a.view.ValidationErrors(err)
	case service.IsNotFound(err):
		a.view.NotFound()
	default:
		a.view.Error("%v", err)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	return fs
}

// idArg splits a leading positional ID from the flags that follow it.
func idArg(args []string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("invalid product ID %q: %w", args[0], errUsage)
	}
	return id, args[1:], nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	category := fs.String("category", "", "only show this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var c model.Category
	if *category != "" {
		parsed, err := model.ParseCategory(*category)
		if err != nil {
			return err
		}
		c = parsed
	}
	listings, err := a.Products.Listing(ctx, c)
	a.view.Grid(listings)
	return err
}

func (a *App) show(ctx context.Context, args []string) error {
	id, _, err := idArg(args)
	if err != nil {
		return err
	}
	d, err := a.Products.Detail(ctx, id)
	if err != nil {
		return err
	}
	a.view.Detail(d)
	return nil
}

func (a *App) search(ctx context.Context, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if keyword == "" {
		return errUsage
	}
	results, err := a.Products.Search(ctx, keyword)
	a.view.SearchResults(keyword, results)
	return err
}

func (a *App) category(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.view.Categories()
		return nil
	}
	c, err := model.ParseCategory(strings.Join(args, " "))
	if err != nil {
		return err
	}
	products, err := a.Products.ByCategory(ctx, c)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		a.view.Message(view.MsgNoProducts)
		return nil
	}
	a.view.ProductList(products)
	return nil
}

func (a *App) image(ctx context.Context, args []string) error {
	id, rest, err := idArg(args)
	if err != nil {
		return err
	}
	fs := a.flags("image")
	out := fs.String("o", "", "output file, defaults to the stored image name")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	img, err := a.Products.Image(ctx, id)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Base(img.Filename)
		if path == "." || path == string(filepath.Separator) {
			path = fmt.Sprintf("product-%d", id)
		}
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	a.view.Message("Saved %s (%d bytes)", path, img.Size())
	return nil
}

func (a *App) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	form := newProductForm(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var p model.Product
	parseErr := form.apply(&p, false)
	img, imgErr := form.readImage()
	if err := combine(parseErr, imgErr, service.ValidateProduct(&p), service.ValidateImage(img)); err != nil {
		return err
	}

	created, err := a.Products.Create(ctx, &p, img)
	if err != nil {
		return err
	}
	a.view.Message("Product added successfully! (id %d)", created.ID)
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	id, rest, err := idArg(args)
	if err != nil {
		return err
	}
	fs := a.flags("update")
	form := newProductForm(fs, false)
	if err := fs.Parse(rest); err != nil {
		return err
	}

	p, err := a.Products.Lookup(ctx, id)
	if err != nil {
		return err
	}
	parseErr := form.apply(&p, true)
	if err := combine(parseErr, service.ValidateProduct(&p)); err != nil {
		return err
	}

	if _, err := a.Products.Update(ctx, id, &p); err != nil {
		return err
	}
	a.view.Message("Product updated successfully!")
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	id, _, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.Products.Delete(ctx, id); err != nil {
		return err
	}
	a.view.Message("Product deleted successfully.")
	return nil
}

func (a *App) theme(_ context.Context, args []string) error {
	if len(args) == 0 {
		a.view.Message("%s", a.Prefs.Theme())
		return nil
	}
	var (
		t   prefs.Theme
		err error
	)
	if strings.EqualFold(args[0], "toggle") {
		t, err = a.Prefs.Toggle()
	} else if t, err = prefs.ParseTheme(args[0]); err == nil {
		err = a.Prefs.SetTheme(t)
	}
	if err != nil {
		return err
	}
	a.view.Message("%s", t)
	return nil
}

func (a *App) health(ctx context.Context, _ []string) error {
	status := a.Health.Check(ctx)
	if !status.Up() {
		return fmt.Errorf("API: DOWN (%s)", status.Error)
	}
	a.view.Message("API: UP (%s, %d products)", status.Latency.Round(time.Millisecond), status.Products)
	return nil
}

// shell treats an interrupt as a normal way to leave the session.
func (a *App) shell(ctx context.Context, _ []string) error {
	err := shell.New(a.Products, a.Cart, a.Prefs, a.In, a.Out).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) version(context.Context, []string) error {
	a.view.Message("storefront %s (commit %s, built %s)", version.Version, version.Commit, version.BuildTime)
	return nil
}
