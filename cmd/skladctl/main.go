// Command skladctl is the terminal client for a sklad server. It keeps a
// session file with the token pair from login and talks to the server
// through the same store contract the server uses internally, so drafts
// and barcode scanning behave identically on both sides.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"sklad/internal/ledger"
	"sklad/internal/model"
	"sklad/internal/remote"
	"sklad/internal/scan"
)

func usage() {
	fmt.Fprint(os.Stdout, `Usage: skladctl [flags] <command> [args]

Commands:
  login <username>               log in and store the session
  logout                         revoke the session
  items                          list catalog items with per-size stock
  history <item-id>              show the quantity history of an item
  record <in|out> [line ...]     record a stock movement; each line is
                                 <item-id>:<size>:<qty>, or pass -scan to
                                 read barcodes from stdin (one per line)
  supplies [item-id]             list recorded movements
  orders                         list orders

Flags:
  -s, -server <url>   server base URL (default: http://localhost:8080)
  -f, -session <path> session file (default: ~/.config/sklad/session.json)
  -scan               record: read barcodes from stdin instead of lines
  -h, -help           show this help and exit
`)
}

// session is the persisted login state.
type session struct {
	Server  string `json:"server"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sklad-session.json"
	}
	return filepath.Join(dir, "sklad", "session.json")
}

func loadSession(path string) (*session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not logged in, run: skladctl login <username>")
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var s session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	return &s, nil
}

func saveSession(path string, s *session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	// The file holds bearer tokens, keep it owner-only.
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// refreshingTokens hands out the stored access token and, when the server
// rejects it, redeems the refresh token once and retries. Refresh tokens
// are single use, so the rotated pair is written back immediately.
type refreshingTokens struct {
	path    string
	sess    *session
	client  *remote.Client
	retried bool
}

func (t *refreshingTokens) Token(ctx context.Context) (string, error) {
	return t.sess.Access, nil
}

func (t *refreshingTokens) refresh(ctx context.Context) error {
	if t.retried {
		return fmt.Errorf("session expired, run: skladctl login <username>")
	}
	t.retried = true

	resp, err := t.client.Refresh(ctx, t.sess.Refresh)
	if err != nil {
		return fmt.Errorf("session expired, run: skladctl login <username>")
	}
	t.sess.Access = resp.Access
	t.sess.Refresh = resp.Refresh
	return saveSession(t.path, t.sess)
}

// withRetry runs fn and, on a 401, refreshes the token pair and runs it
// one more time.
func (t *refreshingTokens) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 401 {
		if rerr := t.refresh(ctx); rerr != nil {
			return rerr
		}
		return fn()
	}
	return err
}

func main() {
	fs := flag.NewFlagSet("skladctl", flag.ContinueOnError)

	var server string
	fs.StringVar(&server, "server", "http://localhost:8080", "")
	fs.StringVar(&server, "s", "http://localhost:8080", "")

	var sessionPath string
	fs.StringVar(&sessionPath, "session", defaultSessionPath(), "")
	fs.StringVar(&sessionPath, "f", defaultSessionPath(), "")

	var scanMode bool
	fs.BoolVar(&scanMode, "scan", false, "")

	fs.Usage = usage
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := fs.Arg(0)
	args := fs.Args()[1:]

	var err error
	switch command {
	case "login":
		err = runLogin(ctx, server, sessionPath, args)
	case "logout":
		err = runLogout(ctx, sessionPath)
	case "items":
		err = withSession(ctx, sessionPath, runItems)
	case "history":
		err = withSession(ctx, sessionPath, func(ctx context.Context, t *refreshingTokens, c *remote.Client) error {
			return runHistory(ctx, t, c, args)
		})
	case "record":
		err = withSession(ctx, sessionPath, func(ctx context.Context, t *refreshingTokens, c *remote.Client) error {
			return runRecord(ctx, t, c, args, scanMode)
		})
	case "supplies":
		err = withSession(ctx, sessionPath, func(ctx context.Context, t *refreshingTokens, c *remote.Client) error {
			return runSupplies(ctx, t, c, args)
		})
	case "orders":
		err = withSession(ctx, sessionPath, runOrders)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withSession loads the stored session and hands the command a client
// whose token source refreshes expired access tokens transparently.
func withSession(ctx context.Context, path string, fn func(context.Context, *refreshingTokens, *remote.Client) error) error {
	sess, err := loadSession(path)
	if err != nil {
		return err
	}

	tokens := &refreshingTokens{path: path, sess: sess}
	client := remote.NewClient(sess.Server, tokens)
	tokens.client = client
	return fn(ctx, tokens, client)
}

func runLogin(ctx context.Context, server, sessionPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: skladctl login <username>")
	}
	username := args[0]

	password, err := promptPassword()
	if err != nil {
		return err
	}

	client := remote.NewClient(server, nil)
	resp, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	err = saveSession(sessionPath, &session{
		Server:  client.BaseURL,
		Access:  resp.Access,
		Refresh: resp.Refresh,
	})
	if err != nil {
		return err
	}

	if resp.Workshop != nil {
		fmt.Printf("Logged in as %s (%s), workshop %q\n", resp.User.Username, resp.User.Role, resp.Workshop.Name)
	} else {
		fmt.Printf("Logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
	}
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	// Piped input, read one line.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(ctx context.Context, sessionPath string) error {
	err := withSession(ctx, sessionPath, func(ctx context.Context, t *refreshingTokens, c *remote.Client) error {
		return c.Logout(ctx)
	})
	if err != nil {
		// Revocation is best effort, the local session still goes away.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if err := os.Remove(sessionPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}

func runItems(ctx context.Context, tokens *refreshingTokens, client *remote.Client) error {
	var items []model.Item
	err := tokens.withRetry(ctx, func() error {
		var err error
		items, err = client.ListItems(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("No items.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %s (total %d)\n", item.ID, item.Name, item.TotalQuantity())
		for _, size := range item.Sizes {
			if size.Barcode != "" {
				fmt.Printf("    %-8s %4d  [%s]\n", size.Label, size.Quantity, size.Barcode)
			} else {
				fmt.Printf("    %-8s %4d\n", size.Label, size.Quantity)
			}
		}
	}
	return nil
}

func runHistory(ctx context.Context, tokens *refreshingTokens, client *remote.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: skladctl history <item-id>")
	}
	itemID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid item id: %w", err)
	}

	var changes []model.InventoryChange
	err = tokens.withRetry(ctx, func() error {
		var err error
		changes, err = client.ListChanges(ctx, itemID)
		return err
	})
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		fmt.Println("No history.")
		return nil
	}
	for _, ch := range changes {
		line := fmt.Sprintf("%s  %-8s %+5d  %s", ch.Date.Format("2006-01-02 15:04"), ch.SizeLabel, ch.Amount, ch.Kind)
		if ch.Note != "" {
			line += "  (" + ch.Note + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runRecord(ctx context.Context, tokens *refreshingTokens, client *remote.Client, args []string, scanMode bool) error {
	if len(args) < 1 || (args[0] != model.SupplyIn && args[0] != model.SupplyOut) {
		return fmt.Errorf("usage: skladctl record <in|out> [line ...]")
	}
	typ := args[0]
	lineSpecs := args[1:]

	mirror := remote.NewMirror(client)
	err := tokens.withRetry(ctx, func() error { return mirror.LoadItems(ctx) })
	if err != nil {
		return err
	}

	draft := ledger.NewDraft(typ, mirror.Availability())

	if scanMode {
		if len(lineSpecs) > 0 {
			return fmt.Errorf("-scan takes no line arguments")
		}
		if err := fillDraftFromScanner(ctx, client, mirror, draft); err != nil {
			return err
		}
	} else {
		if len(lineSpecs) == 0 {
			return fmt.Errorf("no lines given (or pass -scan)")
		}
		for _, spec := range lineSpecs {
			if err := addDraftLine(mirror, draft, spec); err != nil {
				return err
			}
		}
	}

	lines := draft.Lines()
	if len(lines) == 0 {
		fmt.Println("Nothing to record.")
		return nil
	}

	fmt.Printf("Recording %s movement:\n", typ)
	for _, l := range lines {
		fmt.Printf("  %-30s %-8s %4d\n", l.Item.Name, l.SizeLabel, l.Quantity)
	}

	var supply *model.Supply
	err = tokens.withRetry(ctx, func() error {
		var err error
		supply, err = mirror.CommitDraft(ctx, draft)
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNothingToSave) {
			fmt.Println("Nothing to record.")
			return nil
		}
		return err
	}

	fmt.Printf("Recorded supply #%d (%s).\n", supply.Number, supply.Type)
	return nil
}

// addDraftLine parses an <item-id>:<size>:<qty> spec and merges it into
// the draft. Outbound quantities are clamped to the mirrored stock; a
// clamp that leaves no room fails the whole record.
func addDraftLine(mirror *remote.Mirror, draft *ledger.Draft, spec string) error {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return fmt.Errorf("invalid line %q, want <item-id>:<size>:<qty>", spec)
	}

	itemID, err := uuid.Parse(parts[0])
	if err != nil {
		return fmt.Errorf("invalid item id in %q: %w", spec, err)
	}
	qty, err := strconv.Atoi(parts[2])
	if err != nil || qty <= 0 {
		return fmt.Errorf("invalid quantity in %q", spec)
	}

	item, ok := findItem(mirror.Items(), itemID)
	if !ok {
		return fmt.Errorf("unknown item %s", itemID)
	}
	if err := draft.AddOrMergeLine(item, parts[1], qty); err != nil {
		return fmt.Errorf("adding %s size %q: %w", item.Name, parts[1], err)
	}
	return nil
}

// fillDraftFromScanner reads barcodes from stdin, one per line, the way a
// keyboard-wedge scanner emits them. Each resolved code adds one unit to
// the draft; repeated reads of the same code inside the cooldown window
// are dropped as double triggers. EOF (Ctrl-D) ends the scan.
func fillDraftFromScanner(ctx context.Context, client *remote.Client, mirror *remote.Mirror, draft *ledger.Draft) error {
	resolver := scan.NewResolver(client)
	fmt.Fprintln(os.Stderr, "Scan barcodes, Ctrl-D to finish:")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}

		itemID, sizeLabel, err := resolver.Resolve(ctx, code)
		if errors.Is(err, scan.ErrDuplicateScan) {
			continue
		}
		if errors.Is(err, ledger.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "  unknown barcode %q\n", code)
			continue
		}
		if err != nil {
			return err
		}

		item, ok := findItem(mirror.Items(), itemID)
		if !ok {
			fmt.Fprintf(os.Stderr, "  barcode %q resolves outside this workshop\n", code)
			continue
		}

		if err := draft.AddOrMergeLine(item, sizeLabel, 1); err != nil {
			if errors.Is(err, ledger.ErrInsufficientStock) {
				fmt.Fprintf(os.Stderr, "  no stock left for %s size %q\n", item.Name, sizeLabel)
				continue
			}
			return err
		}

		for _, l := range draft.Lines() {
			if l.Item.ID == itemID && l.SizeLabel == sizeLabel {
				fmt.Fprintf(os.Stderr, "  %s %s x%d\n", item.Name, sizeLabel, l.Quantity)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading scans: %w", err)
	}
	return nil
}

func findItem(items []model.Item, id uuid.UUID) (model.Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return model.Item{}, false
}

func runSupplies(ctx context.Context, tokens *refreshingTokens, client *remote.Client, args []string) error {
	itemID := uuid.Nil
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid item id: %w", err)
		}
		itemID = id
	} else if len(args) > 1 {
		return fmt.Errorf("usage: skladctl supplies [item-id]")
	}

	var supplies []model.Supply
	err := tokens.withRetry(ctx, func() error {
		var err error
		supplies, err = client.ListSupplies(ctx, itemID)
		return err
	})
	if err != nil {
		return err
	}

	if len(supplies) == 0 {
		fmt.Println("No supplies.")
		return nil
	}
	for _, s := range supplies {
		fmt.Printf("#%-4d %s  %-3s  %d lines", s.Number, s.Date.Format("2006-01-02 15:04"), s.Type, len(s.LineItems))
		if s.CreatedByUsername != "" {
			fmt.Printf("  by %s", s.CreatedByUsername)
		}
		fmt.Println()
		for _, li := range s.LineItems {
			name := li.ItemName
			if name == "" {
				name = "(deleted item)"
			}
			fmt.Printf("      %-30s %-8s %4d\n", name, li.SizeLabel, li.Quantity)
		}
	}
	return nil
}

func runOrders(ctx context.Context, tokens *refreshingTokens, client *remote.Client) error {
	var orders []model.Order
	err := tokens.withRetry(ctx, func() error {
		var err error
		orders, err = client.ListOrders(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		fmt.Println("No orders.")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("%s  %-10s %-12s %d lines\n", o.ID, o.Status, o.Source, len(o.LineItems))
	}
	return nil
}
