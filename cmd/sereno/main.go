package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/tramontosereno/sereno/internal/browser"
	"github.com/tramontosereno/sereno/internal/config"
	"github.com/tramontosereno/sereno/internal/download"
	"github.com/tramontosereno/sereno/internal/logging"
	"github.com/tramontosereno/sereno/internal/tui"
	"github.com/tramontosereno/sereno/pkg/auth"
	"github.com/tramontosereno/sereno/pkg/bridge"
	"github.com/tramontosereno/sereno/pkg/client"
	"github.com/tramontosereno/sereno/pkg/device"
	"github.com/tramontosereno/sereno/pkg/domain"
	"github.com/tramontosereno/sereno/pkg/store"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// startTimeout bounds session restore before the TUI opens.
const startTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "errore: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "--version", "version", "-v":
		fmt.Println("sereno " + version)
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	ctx := context.Background()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	switch cmd {
	case "":
		return e.runTUI(ctx)
	case "login":
		return e.runLogin(ctx, args, os.Stdin)
	case "logout":
		return e.runLogout(ctx)
	case "whoami":
		return e.runWhoami(ctx)
	case "validate":
		return e.runValidate(ctx)
	case "open":
		return e.runOpen(ctx, args)
	case "services":
		return e.runServices(ctx)
	case "partners":
		return partnersCommand(ctx, e.client, args, os.Stdout)
	case "plan":
		return e.runPlan(ctx, args, os.Stdin)
	case "bridge":
		return e.runBridge(ctx, os.Stdin, os.Stdout)
	case "delete-account":
		return e.runDeleteAccount(ctx, os.Stdin)
	case "cleanup":
		return e.runCleanup()
	default:
		printHelp()
		return fmt.Errorf("comando sconosciuto %q", cmd)
	}
}

// env holds the collaborators shared by every subcommand.
type env struct {
	cfg       *config.Config
	log       *logrus.Logger
	store     *store.SessionStore
	client    *client.Client
	auth      *auth.Manager
	downloads *download.Manager
	bridge    *bridge.Handler
	cleanup   func()
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, cleanup, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
		Dir:    cfg.DataDir,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := openStore(ctx, cfg, log)
	if err != nil {
		cleanup()
		return nil, err
	}

	opts := []client.Option{client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(log)}
	if cfg.Breaker {
		opts = append(opts, client.WithCircuitBreaker(client.NewBreaker("gateway")))
	}
	c := client.New(cfg.APIURL, sessions, opts...)

	dev := device.NewProvider(device.AppInfo{Name: cfg.AppName, Version: cfg.AppVersion})
	mgr := auth.NewManager(c, sessions, auth.WithDevice(dev.Describe), auth.WithLogger(log))

	dl := download.New(cfg.DownloadDir(), download.WithLogger(log))
	return &env{
		cfg:       cfg,
		log:       log,
		store:     sessions,
		client:    c,
		auth:      mgr,
		downloads: dl,
		bridge:    bridge.NewHandler(dl, cfg.StorageURL, bridge.WithLogger(log)),
		cleanup:   cleanup,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*store.SessionStore, error) {
	var kv store.KV
	switch cfg.Store {
	case config.StoreRedis:
		r, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		kv = r
	case config.StoreMemory:
		kv = store.NewMemoryKV()
	default:
		f, err := store.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		kv = f
	}
	return store.New(kv, store.WithLogger(log)), nil
}

func (e *env) Close() {
	e.auth.Close()
	e.store.Close() //nolint:errcheck // best-effort close
	e.cleanup()
}

// restore runs the startup sequence and waits for the manager to settle.
func (e *env) restore(ctx context.Context) error {
	if err := e.auth.Start(ctx); err != nil {
		return err
	}
	<-e.auth.Ready()
	return nil
}

func (e *env) runTUI(ctx context.Context) error {
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := e.restore(startCtx); err != nil {
		e.log.WithError(err).Warn("session restore failed")
	}
	app := tui.NewApp(e.auth, e.client, tui.Options{AppURL: e.cfg.AppURL, PingInterval: e.cfg.PingInterval})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

type loginFlags struct {
	email    string
	password string
	role     string
}

// parseLoginArgs reads "--email x", "--password y" and "--partner". A bare
// argument is taken as the email.
func parseLoginArgs(args []string) (loginFlags, error) {
	f := loginFlags{role: domain.RoleHintUser}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--partner":
			f.role = domain.RoleHintPartner
		case a == "--email" || a == "--password":
			if i+1 >= len(args) {
				return f, fmt.Errorf("%s richiede un valore", a)
			}
			i++
			if a == "--email" {
				f.email = args[i]
			} else {
				f.password = args[i]
			}
		case strings.HasPrefix(a, "--email="):
			f.email = strings.TrimPrefix(a, "--email=")
		case strings.HasPrefix(a, "--password="):
			f.password = strings.TrimPrefix(a, "--password=")
		case strings.HasPrefix(a, "-"):
			return f, fmt.Errorf("opzione sconosciuta %q", a)
		default:
			f.email = a
		}
	}
	return f, nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (e *env) runLogin(ctx context.Context, args []string, in io.Reader) error {
	f, err := parseLoginArgs(args)
	if err != nil {
		return err
	}
	if f.password == "" {
		f.password = os.Getenv("SERENO_PASSWORD")
	}
	r := bufio.NewReader(in)
	if f.email == "" {
		if f.email, err = prompt(r, "Email: "); err != nil {
			return err
		}
	}
	if f.password == "" {
		if f.password, err = prompt(r, "Password: "); err != nil {
			return err
		}
	}
	if f.email == "" || f.password == "" {
		return errors.New("email e password sono obbligatorie")
	}

	sess, err := e.auth.Login(ctx, f.email, f.password, f.role)
	if err != nil {
		if errors.Is(err, client.ErrConnection) {
			return err
		}
		return errors.New("credenziali non valide")
	}
	fmt.Printf("Accesso effettuato come %s.\n", roleName(sess.Role))
	return nil
}

func (e *env) runLogout(ctx context.Context) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	if e.auth.Session() == nil {
		fmt.Println("Nessuna sessione attiva.")
		return nil
	}
	if err := e.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Sessione chiusa.")
	return nil
}

func (e *env) runWhoami(ctx context.Context) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	if e.auth.Session() == nil {
		printGreeting()
		return nil
	}
	p, err := e.auth.UserProfile(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		printGreeting()
		return nil
	}
	fmt.Printf("%s <%s>  %s\n", p.User.DisplayName(), p.User.Email, roleName(int(p.User.Role)))
	if plan := p.CurrentPlan(); plan != nil {
		fmt.Printf("Piano attivo: %s\n", plan.Name)
	}
	fmt.Printf("Piani: %d\n", len(p.Plans))
	return nil
}

func (e *env) runValidate(ctx context.Context) error {
	sess, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	if !sess.Valid() {
		fmt.Println("Nessuna sessione salvata.")
		return nil
	}
	ok, err := e.client.ValidateToken(ctx, sess.Token)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("Token valido.")
	} else {
		fmt.Println("Token non valido.")
	}
	return nil
}

// routeURL builds the URL that opens route in the web app, carrying the
// session through the set-token hand-off when there is one.
func routeURL(appURL string, sess *domain.Session, route string) string {
	if sess.Valid() {
		return bridge.SetTokenURL(appURL, sess.Token, route)
	}
	if route == "" {
		route = "/"
	}
	return bridge.GuestURL(appURL, route)
}

func (e *env) runOpen(ctx context.Context, args []string) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	route := ""
	if len(args) > 0 {
		route = args[0]
	}
	u := routeURL(e.cfg.AppURL, e.auth.Session(), route)
	if err := browser.Open(u); err != nil {
		fmt.Printf("Impossibile aprire il browser. Visita questo indirizzo:\n  %s\n", u)
	}
	return nil
}

func (e *env) runServices(ctx context.Context) error {
	services, err := e.client.ServicesAvailable(ctx)
	if err != nil {
		return err
	}
	for _, s := range services {
		fmt.Printf("%-28s %s\n", s.Title, s.URL)
	}
	return nil
}

// partnerClient is the part of the gateway client used by "partners".
type partnerClient interface {
	PartnerSearch(ctx context.Context, q domain.PartnerQuery) (*client.PartnerPage, error)
	PartnerGet(ctx context.Context, id int) (*domain.Partner, error)
}

// partnersCommand searches partners by free text, or shows one partner when
// the only argument is a numeric id.
func partnersCommand(ctx context.Context, c partnerClient, args []string, out io.Writer) error {
	if len(args) == 1 {
		if id, err := strconv.Atoi(args[0]); err == nil && id > 0 {
			p, err := c.PartnerGet(ctx, id)
			if err != nil {
				return err
			}
			printPartner(out, p)
			return nil
		}
	}

	page, err := c.PartnerSearch(ctx, domain.PartnerQuery{Query: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	for _, p := range page.Partners {
		fmt.Fprintf(out, "%-6d %-32s %s\n", int(p.ID), p.ShopName, p.FullAddress)
	}
	fmt.Fprintf(out, "%d risultati\n", page.Total)
	return nil
}

func printPartner(out io.Writer, p *domain.Partner) {
	fmt.Fprintf(out, "%s (%d)\n", p.ShopName, int(p.ID))
	rows := []struct{ label, value string }{
		{"Indirizzo", p.FullAddress},
		{"Telefono", p.Phone},
		{"Email", p.Email},
		{"Sito", p.URL},
	}
	for _, r := range rows {
		if r.value != "" {
			fmt.Fprintf(out, "  %-10s %s\n", r.label, r.value)
		}
	}
	if p.CanManagePlans {
		fmt.Fprintln(out, "  Gestisce i piani Tramonto Sereno")
	}
	if p.Description != "" {
		fmt.Fprintf(out, "\n%s\n", p.Description)
	}
}

// planFlags maps the "plan" options to request fields.
func planFlags(r *domain.PlanningRequest) map[string]*string {
	return map[string]*string{
		"--name":    &r.Name,
		"--email":   &r.Email,
		"--phone":   &r.Phone,
		"--date":    &r.PreferredDate,
		"--service": &r.ServiceType,
		"--notes":   &r.Notes,
	}
}

// parsePlanArgs reads "--name x" or "--name=x" for every planning field.
func parsePlanArgs(args []string) (domain.PlanningRequest, error) {
	var r domain.PlanningRequest
	flags := planFlags(&r)
	for i := 0; i < len(args); i++ {
		name, value, inline := strings.Cut(args[i], "=")
		dst, ok := flags[name]
		if !ok {
			return r, fmt.Errorf("opzione sconosciuta %q", args[i])
		}
		if !inline {
			if i+1 >= len(args) {
				return r, fmt.Errorf("%s richiede un valore", name)
			}
			i++
			value = args[i]
		}
		*dst = strings.TrimSpace(value)
	}
	return r, nil
}

// planSubmitter sends the planning contact form.
type planSubmitter interface {
	SubmitPlanning(ctx context.Context, req domain.PlanningRequest) error
}

// planCommand prompts for a missing name or email, then submits req.
func planCommand(ctx context.Context, c planSubmitter, req domain.PlanningRequest, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	var err error
	if req.Name == "" {
		if req.Name, err = prompt(r, "Nome: "); err != nil {
			return err
		}
	}
	if req.Email == "" {
		if req.Email, err = prompt(r, "Email: "); err != nil {
			return err
		}
	}
	if req.Name == "" || req.Email == "" {
		return errors.New("nome ed email sono obbligatori")
	}
	if err := c.SubmitPlanning(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(out, "Richiesta inviata. Verrai ricontattato al più presto.")
	return nil
}

// runPlan fills name and email from the profile when logged in.
func (e *env) runPlan(ctx context.Context, args []string, in io.Reader) error {
	req, err := parsePlanArgs(args)
	if err != nil {
		return err
	}
	if err := e.restore(ctx); err != nil {
		return err
	}
	if e.auth.Session() != nil && (req.Name == "" || req.Email == "") {
		if p, err := e.auth.UserProfile(ctx); err == nil && p != nil {
			if req.Name == "" {
				req.Name = p.User.DisplayName()
			}
			if req.Email == "" {
				req.Email = p.User.Email
			}
		}
	}
	return planCommand(ctx, e.client, req, in, os.Stdout)
}

// messageHandler is the part of bridge.Handler used by the stdin loop.
type messageHandler interface {
	Handle(ctx context.Context, raw string, hs *bridge.Handlers) error
}

var errGoBack = errors.New("go back")

// bridgeLoop feeds each input line to h. Navigate opens the route, data is
// echoed to out and goBack ends the loop.
func bridgeLoop(ctx context.Context, h messageHandler, in io.Reader, out io.Writer, openRoute func(string) error) error {
	done := false
	hs := &bridge.Handlers{
		OnGoBack: func() { done = true },
		OnNavigate: func(route string) {
			if err := openRoute(route); err != nil {
				fmt.Fprintf(out, "navigate %s: %v\n", route, err)
			}
		},
		OnData: func(payload []byte) {
			fmt.Fprintf(out, "%s\n", payload)
		},
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 32<<20) // inline PDFs arrive as one base64 line
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := h.Handle(ctx, line, hs); err != nil {
			fmt.Fprintf(out, "errore: %v\n", err)
		}
		if done {
			return nil
		}
	}
	return sc.Err()
}

func (e *env) runBridge(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	if sess := e.auth.Session(); sess != nil {
		script, err := bridge.SessionScript(*sess)
		if err != nil {
			return err
		}
		reply, err := bridge.Reply("session", map[string]string{"script": script})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
	}
	return bridgeLoop(ctx, e.bridge, in, out, func(route string) error {
		return browser.Open(routeURL(e.cfg.AppURL, e.auth.Session(), route))
	})
}

func (e *env) runDeleteAccount(ctx context.Context, in io.Reader) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	if e.auth.Session() == nil {
		printGreeting()
		return nil
	}
	r := bufio.NewReader(in)
	confirm, err := prompt(r, "Scrivi ELIMINA per confermare: ")
	if err != nil {
		return err
	}
	if confirm != "ELIMINA" {
		fmt.Println("Operazione annullata.")
		return nil
	}
	password, err := prompt(r, "Password: ")
	if err != nil {
		return err
	}
	if err := e.auth.DeleteAccount(ctx, password); err != nil {
		return err
	}
	fmt.Println("Account eliminato.")
	return nil
}

func (e *env) runCleanup() error {
	n, err := e.downloads.Cleanup()
	if err != nil {
		return err
	}
	fmt.Printf("%d documenti rimossi da %s\n", n, e.downloads.Dir())
	return nil
}

func roleName(role int) string {
	switch role {
	case domain.RoleUser:
		return "utente"
	case domain.RolePartner:
		return "partner"
	default:
		return "ruolo " + strconv.Itoa(role)
	}
}
