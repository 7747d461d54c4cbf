package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"inventory-extractor/internal/browser"
	"inventory-extractor/internal/config"
)

// loginProbe bounds the check for whether the login form is on screen. Short
// on purpose: an authenticated page never shows the form.
const loginProbe = 5 * time.Second

// Credentials for the interactive login fallback.
type Credentials struct {
	Username string
	Password string
}

// LoginError is fatal: credentials were rejected, missing, or the login page
// never became usable.
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("login failed: %s", e.Reason)
}

func (e *LoginError) Unwrap() error { return e.Err }

// Initializer produces an authenticated page, preferring a saved session and
// falling back to exactly one credential login.
type Initializer struct {
	browser   *browser.Browser
	store     *Store
	creds     Credentials
	selectors config.LoginSelectors
	timeout   time.Duration
}

// NewInitializer wires an initializer for the given browser and session store.
func NewInitializer(b *browser.Browser, store *Store, creds Credentials, selectors config.LoginSelectors, timeout time.Duration) *Initializer {
	return &Initializer{
		browser:   b,
		store:     store,
		creds:     creds,
		selectors: selectors,
		timeout:   timeout,
	}
}

// Start navigates to baseURL with any saved session applied and returns with
// the page authenticated. resumed reports whether the saved session was used
// without a fresh login.
func (i *Initializer) Start(baseURL string) (resumed bool, err error) {
	state, err := i.store.Load()
	if err != nil {
		slog.Warn("could not load saved session, continuing with fresh login", "error", err)
		state = nil
	}

	if !state.Empty() {
		if err := i.browser.SetCookies(cookieParams(state.Cookies)); err != nil {
			slog.Warn("could not restore cookies", "error", err)
			state = nil
		}
	}

	if err := i.browser.Navigate(baseURL, i.timeout); err != nil {
		return false, &LoginError{Reason: "login page unreachable", Err: err}
	}

	if !state.Empty() {
		i.restoreStorage(state)
	}

	if !state.Empty() && !i.loginVisible() {
		slog.Info("using existing session", "saved_at", state.SavedAt)
		return true, nil
	}

	slog.Info("no valid session found, authenticating")
	if err := i.login(); err != nil {
		i.browser.Screenshot("auth_error.png")
		return false, err
	}

	if err := i.persist(); err != nil {
		// The run itself is authenticated; only reuse on the next run is lost.
		slog.Warn("could not persist session state", "error", err)
	}
	return false, nil
}

// loginVisible probes for the email input that only the login form shows.
func (i *Initializer) loginVisible() bool {
	el, err := i.browser.Page().Timeout(loginProbe).Element(i.selectors.Email)
	if err != nil {
		return false
	}
	visible, err := el.Visible()
	return err == nil && visible
}

func (i *Initializer) login() error {
	if i.creds.Username == "" || i.creds.Password == "" {
		return &LoginError{Reason: "credentials not configured (set PORTAL_USERNAME and PORTAL_PASSWORD)"}
	}

	page := i.browser.Page().Timeout(i.timeout)

	email, err := page.Element(i.selectors.Email)
	if err != nil {
		return &LoginError{Reason: "email input never appeared", Err: err}
	}
	if err := email.WaitVisible(); err != nil {
		return &LoginError{Reason: "email input never became visible", Err: err}
	}
	if err := email.Input(i.creds.Username); err != nil {
		return &LoginError{Reason: "could not fill email", Err: err}
	}

	password, err := page.Element(i.selectors.Password)
	if err != nil {
		return &LoginError{Reason: "password input never appeared", Err: err}
	}
	if err := password.Input(i.creds.Password); err != nil {
		return &LoginError{Reason: "could not fill password", Err: err}
	}

	submit, err := page.Element(i.selectors.Submit)
	if err != nil {
		return &LoginError{Reason: "submit button never appeared", Err: err}
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &LoginError{Reason: "could not submit login form", Err: err}
	}

	if err := i.waitLoggedIn(); err != nil {
		return &LoginError{Reason: "post-login marker never appeared, credentials likely rejected", Err: err}
	}

	slog.Info("authentication successful")
	return nil
}

func (i *Initializer) waitLoggedIn() error {
	page := i.browser.Page().Timeout(i.timeout)
	var el *rod.Element
	var err error
	if i.selectors.LoggedInMatch != "" {
		el, err = page.ElementR(i.selectors.LoggedIn, i.selectors.LoggedInMatch)
	} else {
		el, err = page.Element(i.selectors.LoggedIn)
	}
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// restoreStorage injects saved localStorage for the current origin and
// reloads so the app boots with it in place.
func (i *Initializer) restoreStorage(state *State) {
	origin, err := i.pageOrigin()
	if err != nil {
		slog.Warn("could not determine page origin", "error", err)
		return
	}

	stored := state.Storage(origin)
	if len(stored) == 0 {
		return
	}

	page := i.browser.Page()
	_, err = page.Eval(`(entries) => {
		for (const [key, value] of Object.entries(entries)) {
			localStorage.setItem(key, value);
		}
	}`, stored)
	if err != nil {
		slog.Warn("could not restore localStorage", "error", err)
		return
	}

	if err := page.Reload(); err != nil {
		slog.Warn("could not reload after storage restore", "error", err)
		return
	}
	i.browser.Settle(i.timeout)
}

// persist captures the live session and writes it for the next run. Empty
// state is not written: that usually means the login did not stick.
func (i *Initializer) persist() error {
	state, err := i.capture()
	if err != nil {
		return err
	}
	if state.Empty() {
		i.browser.Screenshot("empty_session_debug.png")
		return fmt.Errorf("captured session state is empty, login may have failed")
	}
	if err := i.store.Save(state); err != nil {
		return err
	}
	slog.Info("session saved", "cookies", len(state.Cookies), "origins", len(state.Origins))
	return nil
}

func (i *Initializer) capture() (*State, error) {
	cookies, err := i.browser.Cookies()
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	state := &State{
		Cookies: cookies,
		SavedAt: time.Now(),
	}

	origin, err := i.pageOrigin()
	if err != nil {
		return nil, err
	}

	obj, err := i.browser.Page().Eval(`() => {
		const entries = {};
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			entries[key] = localStorage.getItem(key);
		}
		return entries;
	}`)
	if err != nil {
		return nil, fmt.Errorf("read localStorage: %w", err)
	}

	storage := map[string]string{}
	for key, value := range obj.Value.Map() {
		storage[key] = value.Str()
	}
	if len(storage) > 0 {
		state.Origins = append(state.Origins, Origin{Origin: origin, LocalStorage: storage})
	}

	return state, nil
}

func (i *Initializer) pageOrigin() (string, error) {
	obj, err := i.browser.Page().Eval(`() => window.location.origin`)
	if err != nil {
		return "", fmt.Errorf("read page origin: %w", err)
	}
	return obj.Value.Str(), nil
}

func cookieParams(cookies []*proto.NetworkCookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return params
}
