package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/prefs"
	"storefront/internal/service"
	"storefront/internal/view"

	"go.opentelemetry.io/otel"
)

var ShellTracer = otel.Tracer("Shell")

var errQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell is one interactive session. Commands run one at a time from the input
// stream; the cart lives as long as the Shell.
type Shell struct {
	products *service.ProductService
	cart     *service.CartService
	prefs    *prefs.Store
	view     *view.Renderer

	scanner  *bufio.Scanner
	out      io.Writer
	commands map[string]command

	readOnce sync.Once
	lines    chan string
	scanErr  error

	// cartCount follows the store through OnChange and feeds the prompt badge.
	cartCount atomic.Int64
}

func New(products *service.ProductService, cart *service.CartService, p *prefs.Store, in io.Reader, out io.Writer) *Shell {
	s := &Shell{
		products: products,
		cart:     cart,
		prefs:    p,
		view:     view.NewRenderer(out, p.Theme()),
		scanner:  bufio.NewScanner(in),
		out:      out,
	}
	s.commands = map[string]command{
		"help":       {"help", "show this help", s.help},
		"list":       {"list [category]", "show the product grid", s.list},
		"categories": {"categories", "show the categories", s.categories},
		"show":       {"show ID", "show a product", s.show},
		"search":     {"search KEYWORD", "search products", s.search},
		"add":        {"add ID", "add a product to the cart", s.add},
		"remove":     {"remove ID", "remove a product from the cart", s.remove},
		"inc":        {"inc ID", "increase a cart quantity", s.inc},
		"dec":        {"dec ID", "decrease a cart quantity", s.dec},
		"qty":        {"qty ID N", "set a cart quantity", s.qty},
		"cart":       {"cart", "show the cart", s.showCart},
		"checkout":   {"checkout", "review and place the order", s.checkout},
		"delete":     {"delete ID", "delete a product", s.delete},
		"refresh":    {"refresh", "refetch the product list", s.refresh},
		"theme":      {"theme [toggle|light|dark]", "show or change the theme", s.theme},
		"quit":       {"quit", "leave the shell", func(context.Context, []string) error { return errQuit }},
	}
	s.commands["exit"] = s.commands["quit"]

	store := products.Store()
	s.cartCount.Store(int64(store.CartCount()))
	store.OnChange(func() { s.cartCount.Store(int64(store.CartCount())) })
	return s
}

// readLine returns the next input line. It gives up as soon as ctx is done,
// even while the reader goroutine is still blocked on the input. ok is false
// at end of input.
func (s *Shell) readLine(ctx context.Context) (line string, ok bool, err error) {
	s.readOnce.Do(func() {
		s.lines = make(chan string)
		go func() {
			defer close(s.lines)
			for s.scanner.Scan() {
				s.lines <- s.scanner.Text()
			}
			s.scanErr = s.scanner.Err()
		}()
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", false, s.scanErr
		}
		return line, true, nil
	}
}

// Run reads commands until EOF, quit, or ctx is cancelled. Command failures are
// reported inline and never end the session.
func (s *Shell) Run(ctx context.Context) error {
	if err := s.products.Store().Refresh(ctx); err != nil {
		s.view.Error("Error fetching products: %v", err)
	}
	fmt.Fprintln(s.out, `Type "help" for commands.`)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(s.out, "storefront (cart: %d)> ", s.cartCount.Load())
		line, ok, err := s.readLine(ctx)
		if !ok {
			fmt.Fprintln(s.out)
			return err
		}
		if err := s.Exec(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	cmd, ok := s.commands[name]
	if !ok {
		s.view.Error("Unknown command %q. Type \"help\".", name)
		return nil
	}

	ctx, span := ShellTracer.Start(ctx, "Shell."+name)
	defer span.End()
	logger.Debug(ctx, "Shell command", slog.String("command", name), slog.Int("args", len(args)))

	err := cmd.run(ctx, args)
	if err != nil && !errors.Is(err, errQuit) {
		span.RecordError(err)
		s.report(err)
	}
	return err
}

func (s *Shell) report(err error) {
	switch {
	case service.IsValidation(err):
		s.view.ValidationErrors(err)
	case service.IsNotFound(err):
		s.view.NotFound()
	case errors.Is(err, context.Canceled):
		s.view.Error("Cancelled.")
	default:
		s.view.Error("%v", err)
	}
}

func (s *Shell) help(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		if name == "exit" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.commands[name]
		fmt.Fprintf(s.out, "  %-28s %s\n", c.usage, c.help)
	}
	return nil
}

func (s *Shell) list(ctx context.Context, args []string) error {
	var category model.Category
	if len(args) > 0 {
		c, err := model.ParseCategory(strings.Join(args, " "))
		if err != nil {
			return err
		}
		category = c
	}
	listings, err := s.products.Listing(ctx, category)
	if err != nil {
		s.view.Grid(nil)
		return nil
	}
	s.view.Grid(listings)
	return nil
}

func (s *Shell) categories(context.Context, []string) error {
	s.view.Categories()
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New("missing product ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product ID %q", args[0])
	}
	return id, nil
}

func (s *Shell) show(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	d, err := s.products.Detail(ctx, id)
	if err != nil {
		return err
	}
	s.view.Detail(d)
	return nil
}

func (s *Shell) search(ctx context.Context, args []string) error {
	keyword := strings.Join(args, " ")
	if keyword == "" {
		return errors.New("missing search keyword")
	}
	results, err := s.products.Search(ctx, keyword)
	if err != nil {
		s.view.SearchResults(keyword, nil)
		return nil
	}
	s.view.SearchResults(keyword, results)
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	p, err := s.products.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cart.Add(p); err != nil {
		return err
	}
	s.view.Message("Product added to cart.")
	return nil
}

func (s *Shell) remove(_ context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	s.cart.Remove(id)
	s.view.Message("Removed.")
	return nil
}

func (s *Shell) inc(_ context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return s.cart.Increase(id)
}

func (s *Shell) dec(_ context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return s.cart.Decrease(id)
}

func (s *Shell) qty(_ context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("missing quantity")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	return s.cart.SetQuantity(id, n)
}

func (s *Shell) showCart(context.Context, []string) error {
	s.view.Cart(s.cart.Summary())
	return nil
}

// checkout shows the confirmation summary and reads a y/N answer from the
// same input stream.
func (s *Shell) checkout(ctx context.Context, _ []string) error {
	sum := s.cart.Summary()
	if len(sum.Lines) == 0 {
		return service.ErrEmptyCart
	}
	s.view.Checkout(sum)
	fmt.Fprint(s.out, "Confirm purchase? [y/N] ")
	line, ok, err := s.readLine(ctx)
	if !ok {
		fmt.Fprintln(s.out)
		return err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		s.view.Message("Checkout cancelled.")
		return nil
	}
	if _, err := s.cart.Checkout(ctx); err != nil {
		return err
	}
	s.view.Message("Purchase completed. Thank you!")
	return nil
}

func (s *Shell) delete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.view.Message("Product deleted successfully.")
	return nil
}

func (s *Shell) refresh(ctx context.Context, _ []string) error {
	if err := s.products.Store().Refresh(ctx); err != nil {
		return err
	}
	s.view.Message("%d products loaded.", len(s.products.Store().Products()))
	return nil
}

func (s *Shell) theme(_ context.Context, args []string) error {
	if len(args) == 0 {
		s.view.Message("Theme: %s", s.prefs.Theme())
		return nil
	}
	var (
		t   prefs.Theme
		err error
	)
	if strings.EqualFold(args[0], "toggle") {
		t, err = s.prefs.Toggle()
	} else {
		t, err = prefs.ParseTheme(args[0])
		if err == nil {
			err = s.prefs.SetTheme(t)
		}
	}
	if err != nil {
		return err
	}
	s.view.SetTheme(t)
	s.view.Message("Theme: %s", t)
	return nil
}
