package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ftsujikawa/password/internal/audit"
	"github.com/ftsujikawa/password/internal/config"
	"github.com/ftsujikawa/password/internal/crypto"
	"github.com/ftsujikawa/password/internal/generate"
	"github.com/ftsujikawa/password/internal/platform"
	"github.com/ftsujikawa/password/internal/session"
	"github.com/ftsujikawa/password/internal/store"
	"github.com/ftsujikawa/password/internal/transfer"
	"github.com/ftsujikawa/password/internal/vault"
)

func main() {
	_ = platform.DisableCoreDumps()

	if len(os.Args) < 2 {
		cmdGenerate("")
		return
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "auth":
		cmdAuth(os.Args[2:])
	case "logout":
		cmdLogout()
	case "session":
		cmdSession()
	case "add":
		cmdAdd(ctx, os.Args[2:])
	case "get":
		cmdGet(ctx, os.Args[2:])
	case "search":
		cmdSearch(ctx, os.Args[2:])
	case "update":
		cmdUpdate(ctx, os.Args[2:])
	case "delete":
		cmdDelete(ctx, os.Args[2:])
	case "export":
		cmdExport(ctx, os.Args[2:])
	case "import":
		cmdImport(ctx, os.Args[2:])
	case "passkey":
		cmdPasskey(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		// A bare argument is a generation length; anything unparsable
		// falls back to the default length.
		cmdGenerate(os.Args[1])
	}
}

func usage() {
	fmt.Print(`password commands:

  password [N]                                    generate a password (default length 16)
  auth [secret] [--ttl minutes]                   start a session (prompts when secret omitted)
  logout                                          end the session
  session                                         show session state
  add <url> <user> [password|length] [--title T] [--note N]
  get <url>
  search <keyword>
  update <id> [--url U] [--user NAME] [--password PASS | --length N] [--title T] [--note N]
  delete <id>
  export <path.csv>
  import <path.csv>
  passkey add <rp_id> <credential_id> <user_handle> <public_key> [--sign-count N] [--transports T] [--title T]
  passkey get <rp_id> <user_handle>
  passkey search <keyword>
  passkey delete <id>
  passkey export <path.csv>
  passkey import <path.csv>

The master secret is read from AUTH_SECRET; data lives under PASSWORD_HOME
(default ~/.password).
`)
}

// ============ Command environment ============

type app struct {
	cfg   config.Config
	vault *vault.Vault
	guard *session.Guard
	close func()
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	master, err := cfg.MasterSecret()
	if err != nil {
		return nil, err
	}
	keys, err := crypto.NewKeyRing(master)
	if err != nil {
		return nil, err
	}
	tokenKey, err := keys.TokenKey()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	guard := session.NewGuard(session.NewFileStore(cfg.SessionPath()), cfg.AuthSecret, tokenKey)
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	log, err := audit.Open(cfg.AuditPath())
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{
		cfg:   cfg,
		vault: vault.New(st, guard, keys, log),
		guard: guard,
		close: func() { _ = st.Close() },
	}, nil
}

func mustOpen() *app {
	a, err := openApp()
	dieIf(err)
	return a
}

// ============ Session commands ============

func cmdAuth(args []string) {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	ttl := fs.Int("ttl", 10, "session lifetime in minutes")
	pos, rest := splitPositional(args)
	_ = fs.Parse(rest)

	var secret string
	if len(pos) > 0 {
		secret = pos[0]
	} else {
		s, err := promptSecret("Secret: ")
		dieIf(err)
		secret = s
	}

	a := mustOpen()
	defer a.close()
	st, err := a.guard.Authenticate(secret, *ttl)
	dieIf(err)
	fmt.Printf("authenticated: session expires in %s\n", st.Remaining)
}

func cmdLogout() {
	a := mustOpen()
	defer a.close()
	dieIf(a.guard.EndSession())
	fmt.Println("logged out")
}

func cmdSession() {
	a := mustOpen()
	defer a.close()
	st, err := a.guard.Check()
	dieIf(err)
	switch st.State {
	case session.StateActive:
		fmt.Printf("session active: expires in %s\n", st.Remaining.Round(time.Second))
	case session.StateExpired:
		fmt.Fprintln(os.Stderr, "session expired: run auth again")
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "no session: run auth first")
		os.Exit(1)
	}
}

// ============ Credential commands ============

func cmdAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fs.String("title", "", "entry title")
	fs.String("note", "", "free-form note")
	pos, rest := splitPositional(args)
	if len(pos) < 2 {
		die(errors.New("usage: password add <url> <user> [password|length] [--title T] [--note N]"))
	}
	_ = fs.Parse(rest)

	secretOrLength := ""
	if len(pos) > 2 {
		secretOrLength = pos[2]
	}

	a := mustOpen()
	defer a.close()
	entry, err := a.vault.AddCredentialSecret(ctx, pos[0], pos[1], secretOrLength,
		flagIfSet(fs, "title"), flagIfSet(fs, "note"))
	dieIf(err)
	fmt.Printf("saved: url=%s user=%s\n", entry.URL, entry.Username)
}

func cmdGet(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password get <url>"))
	}
	a := mustOpen()
	defer a.close()
	entries, err := a.vault.GetByURL(ctx, args[0])
	dieIf(err)
	if len(entries) == 0 {
		die(fmt.Errorf("not found: url=%s", args[0]))
	}
	for _, e := range entries {
		line := fmt.Sprintf("user=%q password=%q", e.Username, e.Password)
		if e.Title != "" {
			line += fmt.Sprintf(" title=%q", e.Title)
		}
		if e.Note != "" {
			line += fmt.Sprintf(" note=%q", e.Note)
		}
		fmt.Println(line)
	}
}

func cmdSearch(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password search <keyword>"))
	}
	a := mustOpen()
	defer a.close()
	entries, err := a.vault.Search(ctx, args[0])
	dieIf(err)
	if len(entries) == 0 {
		die(fmt.Errorf("not found: keyword=%s", args[0]))
	}
	for _, e := range entries {
		line := fmt.Sprintf("id=%s url=%q user=%q", e.ID, e.URL, e.Username)
		if e.Title != "" {
			line += fmt.Sprintf(" title=%q", e.Title)
		}
		if e.Note != "" {
			line += fmt.Sprintf(" note=%q", e.Note)
		}
		fmt.Println(line)
	}
}

func cmdUpdate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	fs.String("url", "", "new url")
	fs.String("user", "", "new username")
	fs.String("password", "", "new password")
	length := fs.Int("length", 0, "generate a new password of this length")
	fs.String("title", "", "new title")
	fs.String("note", "", "new note")
	pos, rest := splitPositional(args)
	if len(pos) < 1 {
		die(errors.New("usage: password update <id> [--url U] [--user NAME] [--password PASS | --length N] [--title T] [--note N]"))
	}
	_ = fs.Parse(rest)

	patch := vault.CredentialPatch{
		URL:      flagIfSet(fs, "url"),
		Username: flagIfSet(fs, "user"),
		Password: flagIfSet(fs, "password"),
		Title:    flagIfSet(fs, "title"),
		Note:     flagIfSet(fs, "note"),
	}
	if patch.Password == nil && flagIfSet(fs, "length") != nil && *length > 0 {
		pw, err := generate.Password(*length)
		dieIf(err)
		patch.Password = &pw
	}

	a := mustOpen()
	defer a.close()
	entry, err := a.vault.Update(ctx, pos[0], patch)
	dieIf(err)
	fmt.Printf("updated: id=%s\n", entry.ID)
}

func cmdDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password delete <id>"))
	}
	a := mustOpen()
	defer a.close()
	dieIf(a.vault.Delete(ctx, args[0]))
	fmt.Printf("deleted: id=%s\n", args[0])
}

func cmdExport(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password export <path.csv>"))
	}
	a := mustOpen()
	defer a.close()
	n, err := transfer.ExportCredentials(ctx, a.vault, args[0])
	dieIf(err)
	fmt.Printf("exported %d entries to %s\n", n, args[0])
}

func cmdImport(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password import <path.csv>"))
	}
	a := mustOpen()
	defer a.close()
	n, err := transfer.ImportCredentials(ctx, a.vault, args[0])
	dieIf(err)
	fmt.Printf("imported %d entries from %s\n", n, args[0])
}

// ============ Passkey commands ============

func cmdPasskey(ctx context.Context, args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		cmdPasskeyAdd(ctx, rest)
	case "get":
		cmdPasskeyGet(ctx, rest)
	case "search":
		cmdPasskeySearch(ctx, rest)
	case "delete":
		cmdPasskeyDelete(ctx, rest)
	case "export":
		cmdPasskeyExport(ctx, rest)
	case "import":
		cmdPasskeyImport(ctx, rest)
	default:
		usage()
		os.Exit(1)
	}
}

func cmdPasskeyAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passkey add", flag.ExitOnError)
	signCount := fs.Uint("sign-count", 0, "authenticator signature counter")
	fs.String("transports", "", "comma-separated transports (usb,nfc,...)")
	fs.String("title", "", "entry title")
	pos, rest := splitPositional(args)
	if len(pos) < 4 {
		die(errors.New("usage: password passkey add <rp_id> <credential_id> <user_handle> <public_key> [--sign-count N] [--transports T] [--title T]"))
	}
	_ = fs.Parse(rest)

	a := mustOpen()
	defer a.close()
	entry, err := a.vault.AddPasskey(ctx, pos[0], pos[1], pos[2], pos[3], uint32(*signCount),
		flagIfSet(fs, "title"), flagIfSet(fs, "transports"))
	dieIf(err)
	fmt.Printf("saved: rp_id=%s user_handle=%s\n", entry.RPID, entry.UserHandle)
}

func cmdPasskeyGet(ctx context.Context, args []string) {
	if len(args) < 2 {
		die(errors.New("usage: password passkey get <rp_id> <user_handle>"))
	}
	a := mustOpen()
	defer a.close()
	entries, err := a.vault.PasskeysByUser(ctx, args[0], args[1])
	dieIf(err)
	if len(entries) == 0 {
		die(fmt.Errorf("not found: rp_id=%s user_handle=%s", args[0], args[1]))
	}
	for _, e := range entries {
		line := fmt.Sprintf("rp_id=%q credential_id=%q user_handle=%q public_key=%q sign_count=%d",
			e.RPID, e.CredentialID, e.UserHandle, e.PublicKey, e.SignCount)
		if e.Title != "" {
			line += fmt.Sprintf(" title=%q", e.Title)
		}
		if e.Transports != "" {
			line += fmt.Sprintf(" transports=%q", e.Transports)
		}
		fmt.Println(line)
	}
}

func cmdPasskeySearch(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password passkey search <keyword>"))
	}
	a := mustOpen()
	defer a.close()
	entries, err := a.vault.SearchPasskeys(ctx, args[0])
	dieIf(err)
	if len(entries) == 0 {
		die(fmt.Errorf("not found: keyword=%s", args[0]))
	}
	for _, e := range entries {
		fmt.Printf("id=%s rp_id=%q credential_id=%q user_handle=%q sign_count=%d\n",
			e.ID, e.RPID, e.CredentialID, e.UserHandle, e.SignCount)
	}
}

func cmdPasskeyDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password passkey delete <id>"))
	}
	a := mustOpen()
	defer a.close()
	dieIf(a.vault.DeletePasskey(ctx, args[0]))
	fmt.Printf("deleted: id=%s\n", args[0])
}

func cmdPasskeyExport(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password passkey export <path.csv>"))
	}
	a := mustOpen()
	defer a.close()
	n, err := transfer.ExportPasskeys(ctx, a.vault, args[0])
	dieIf(err)
	fmt.Printf("exported %d entries to %s\n", n, args[0])
}

func cmdPasskeyImport(ctx context.Context, args []string) {
	if len(args) < 1 {
		die(errors.New("usage: password passkey import <path.csv>"))
	}
	a := mustOpen()
	defer a.close()
	n, err := transfer.ImportPasskeys(ctx, a.vault, args[0])
	dieIf(err)
	fmt.Printf("imported %d entries from %s\n", n, args[0])
}

// ============ Generation ============

func cmdGenerate(arg string) {
	n := generate.DefaultLength
	if arg != "" {
		if v, err := strconv.Atoi(arg); err == nil {
			n = v
		}
	}
	pw, err := generate.Password(n)
	dieIf(err)
	fmt.Println(pw)
}

// ============ Utilities ============

// splitPositional separates leading positional arguments from the flag tail,
// since flag.FlagSet stops at the first non-flag argument.
func splitPositional(args []string) (pos, rest []string) {
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

// flagIfSet returns the flag's value only when it was explicitly supplied,
// so an omitted flag never clears a stored field.
func flagIfSet(fs *flag.FlagSet, name string) *string {
	var out *string
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			v := f.Value.String()
			out = &v
		}
	})
	return out
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func die(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func dieIf(err error) {
	if err != nil {
		die(err)
	}
}
