// Package headless implements browsing surfaces over net/http.
// Surfaces fetch pages, follow redirects, keep history and cookies, and raise
// the same callbacks a rendering engine would, without rendering anything.
package headless

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
)

var (
	// ErrDestroyed is returned when a destroyed surface is used.
	ErrDestroyed = errors.New("surface destroyed")

	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectCancelled = errors.New("redirect cancelled by navigation policy")
)

type navMode int

const (
	navPush navMode = iota
	navHistory
)

// Surface is a headless port.Surface.
type Surface struct {
	id           entity.SurfaceID
	settings     entity.SurfaceSettings
	cookies      *CookieStore
	client       *http.Client
	maxRedirects int
	maxBody      int64
	roots        *x509.CertPool

	mu        sync.Mutex
	history   []string
	index     int
	title     string
	loading   bool
	gen       uint64
	cancel    context.CancelFunc
	callbacks *port.SurfaceCallbacks
	destroyed bool
}

var _ port.Surface = (*Surface)(nil)

func newSurface(id entity.SurfaceID, settings entity.SurfaceSettings, cookies *CookieStore, opts Options) *Surface {
	s := &Surface{
		id:           id,
		settings:     settings,
		cookies:      cookies,
		maxRedirects: opts.MaxRedirects,
		maxBody:      opts.MaxBodyBytes,
		roots:        opts.RootCAs,
		index:        -1,
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		DialTLSContext:      s.dialTLS(dialer),
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}

	s.client = &http.Client{
		Transport:     transport,
		Jar:           cookies,
		Timeout:       opts.Timeout,
		CheckRedirect: s.checkRedirect,
	}
	return s
}

// ID returns the surface identifier.
func (s *Surface) ID() entity.SurfaceID { return s.id }

// Settings returns the settings the surface was created with.
func (s *Surface) Settings() entity.SurfaceSettings { return s.settings }

// Cookies returns the live cookie store.
func (s *Surface) Cookies() port.CookieStore { return s.cookies }

// SetCallbacks registers event handlers.
func (s *Surface) SetCallbacks(callbacks *port.SurfaceCallbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = callbacks
}

func (s *Surface) cb() *port.SurfaceCallbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callbacks == nil {
		return &port.SurfaceCallbacks{}
	}
	return s.callbacks
}

// LoadURI navigates to uri. Navigation failures are reported through
// OnProvisionalFailure; the returned error only covers misuse.
func (s *Surface) LoadURI(ctx context.Context, uri string) error {
	return s.navigate(ctx, strings.TrimSpace(uri), navPush)
}

// Stop abandons the in-flight navigation.
func (s *Surface) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
	return nil
}

// GoBack reloads the previous history entry.
func (s *Surface) GoBack(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	if s.index <= 0 {
		s.mu.Unlock()
		return nil
	}
	s.index--
	target := s.history[s.index]
	s.mu.Unlock()

	return s.navigate(ctx, target, navHistory)
}

// CanGoBack returns true if back navigation is available.
func (s *Surface) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index > 0
}

// URI returns the committed URI.
func (s *Surface) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 {
		return ""
	}
	return s.history[s.index]
}

// Title returns the title of the committed page.
func (s *Surface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// History returns a copy of the back/forward list.
func (s *Surface) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// IsLoading returns true while a navigation is in flight.
func (s *Surface) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// IsDestroyed reports whether Destroy was called.
func (s *Surface) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Destroy cancels any navigation and drops the callbacks.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.callbacks = nil
	s.loading = false
	s.client.CloseIdleConnections()
}

// RequestPopup raises a new-window request as loaded content would.
func (s *Surface) RequestPopup(targetURI string, targetFrameIsNil bool) port.Surface {
	cb := s.cb()
	if cb.OnCreate == nil {
		return nil
	}
	return cb.OnCreate(port.PopupRequest{
		TargetURI:        targetURI,
		TargetFrameIsNil: targetFrameIsNil,
		ParentID:         s.id,
	})
}

// Swipe fires the back edge-swipe gesture.
func (s *Surface) Swipe() {
	if cb := s.cb(); cb.OnEdgeSwipe != nil {
		cb.OnEdgeSwipe()
	}
}

// RequestClose asks the owner to close the surface, as window.close() would.
func (s *Surface) RequestClose() {
	if cb := s.cb(); cb.OnClose != nil {
		cb.OnClose()
	}
}

// RaiseDialog raises a script dialog and returns the owner's answer.
func (s *Surface) RaiseDialog(kind entity.ScriptDialogKind, message string) bool {
	if cb := s.cb(); cb.OnScriptDialog != nil {
		return cb.OnScriptDialog(port.ScriptDialog{Kind: kind, Message: message})
	}
	return false
}

func (s *Surface) navigate(ctx context.Context, uri string, mode navMode) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.mu.Unlock()

	if cb := s.cb(); cb.OnNavigationAction != nil {
		action := port.NavigationAction{URI: uri, IsMainFrame: true}
		if cb.OnNavigationAction(action) == entity.PolicyCancel {
			return nil
		}
	}

	if !entity.IsWebScheme(uri) {
		// about:, data: and friends commit without a request.
		gen := s.begin(nil)
		if s.commit(gen, uri, "", mode) {
			s.settled(uri)
		}
		return nil
	}

	target, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", uri, err)
	}

	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := s.begin(cancel)

	req, err := http.NewRequestWithContext(navCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		s.abandon(gen)
		return fmt.Errorf("failed to build request: %w", err)
	}
	if s.settings.UserAgent != "" {
		req.Header.Set("User-Agent", s.settings.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if !s.abandon(gen) {
			return nil
		}
		if cb := s.cb(); cb.OnProvisionalFailure != nil {
			cb.OnProvisionalFailure(classifyError(err), err)
		}
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if cb := s.cb(); cb.OnAuthChallenge != nil {
			cb.OnAuthChallenge(challengeFor(resp))
		}
	}

	title := pageTitle(io.LimitReader(resp.Body, s.maxBody))
	final := resp.Request.URL.String()
	if s.commit(gen, final, title, mode) {
		s.settled(final)
	}
	return nil
}

func (s *Surface) begin(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	s.loading = cancel != nil
	return s.gen
}

// abandon ends a failed navigation. It reports false when the navigation was
// already superseded by Stop, Destroy or a newer load.
func (s *Surface) abandon(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.loading = false
	s.cancel = nil
	return true
}

func (s *Surface) commit(gen uint64, uri, title string, mode navMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.destroyed {
		return false
	}
	s.loading = false
	s.cancel = nil
	s.title = title

	switch {
	case mode == navHistory && s.index >= 0:
		s.history[s.index] = uri
	default:
		s.history = append(s.history[:s.index+1], uri)
		s.index = len(s.history) - 1
	}
	return true
}

func (s *Surface) settled(uri string) {
	if cb := s.cb(); cb.OnNavigationSettled != nil {
		cb.OnNavigationSettled(uri)
	}
}

func (s *Surface) checkRedirect(req *http.Request, via []*http.Request) error {
	if err := req.Context().Err(); err != nil {
		return err
	}
	if len(via) >= s.maxRedirects {
		return errTooManyRedirects
	}

	cb := s.cb()
	if cb.OnNavigationAction != nil {
		action := port.NavigationAction{URI: req.URL.String(), IsRedirect: true, IsMainFrame: true}
		if cb.OnNavigationAction(action) == entity.PolicyCancel {
			return errRedirectCancelled
		}
	}
	if cb.OnServerRedirect != nil {
		cb.OnServerRedirect(req.URL.String())
	}

	// The redirect handler may have stopped this navigation.
	return req.Context().Err()
}

// dialTLS verifies the peer itself so a failed verification can be raised
// as a server-trust challenge instead of failing the handshake outright.
func (s *Surface) dialTLS(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		raw, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		conn := tls.Client(raw, &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         host,
			InsecureSkipVerify: true, //nolint:gosec // verified in verifyPeer
			VerifyConnection: func(cs tls.ConnectionState) error {
				return s.verifyPeer(host, cs)
			},
		})
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (s *Surface) verifyPeer(host string, cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("no peer certificate")
	}

	intermediates := x509.NewCertPool()
	for _, cert := range cs.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         s.roots,
		Intermediates: intermediates,
	})
	if err == nil {
		return nil
	}

	if cb := s.cb(); cb.OnAuthChallenge != nil &&
		cb.OnAuthChallenge(entity.ChallengeServerTrust) == entity.DispositionAcceptServerTrust {
		return nil
	}
	return err
}

func challengeFor(resp *http.Response) entity.ChallengeKind {
	if strings.HasPrefix(strings.ToLower(resp.Header.Get("WWW-Authenticate")), "basic") {
		return entity.ChallengeHTTPBasic
	}
	return entity.ChallengeOther
}

func classifyError(err error) entity.NavigationErrorKind {
	switch {
	case errors.Is(err, errTooManyRedirects):
		return entity.ErrorKindTooManyRedirects
	case errors.Is(err, context.Canceled), errors.Is(err, errRedirectCancelled):
		return entity.ErrorKindCancelled
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) ||
		errors.As(err, &invalid) || errors.As(err, &verification) {
		return entity.ErrorKindTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return entity.ErrorKindNetwork
	}
	return entity.ErrorKindOther
}

func pageTitle(body io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
