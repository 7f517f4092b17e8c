package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/pkg"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRF protects the htmx pages with a double-submit token bound to the
// dashboard session.
//
// A token is hex(nonce) + "." + base64url(HMAC-SHA256(secret, session|nonce)).
// Safe requests get a token cookie (readable by the page, SameSite=Strict)
// when they lack a valid one, and the token is exposed to templates through
// GetCSRFToken. Mutating requests must echo the cookie in the "_csrf_token"
// form field or the X-CSRF-Token header, which base.html sets on every htmx
// request. A token minted for another session is rejected.
//
// Run Session before CSRF. The JSON API is not wrapped.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "csrf secret is required"})
		}
	}

	g := csrfGuard{key: []byte(secret), secure: gin.Mode() == gin.ReleaseMode}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			g.issue(c)
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			g.verify(c)
		default:
			c.Next()
		}
	}
}

type csrfGuard struct {
	key    []byte
	secure bool
}

func (g csrfGuard) issue(c *gin.Context) {
	session := GetSessionID(c)
	token, err := c.Cookie(csrfCookieName)
	if err != nil || !g.valid(token, session) {
		if token, err = g.mint(session); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to generate CSRF token"})
			return
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			Secure:   g.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
	c.Set(csrfContextKey, token)
	c.Next()
}

func (g csrfGuard) verify(c *gin.Context) {
	cookie, err := c.Cookie(csrfCookieName)
	if err != nil || cookie == "" {
		rejectCSRF(c, "CSRF token missing")
		return
	}
	sent := c.PostForm(csrfFormField)
	if sent == "" {
		sent = c.GetHeader(csrfHeaderName)
	}
	if sent == "" {
		rejectCSRF(c, "CSRF token missing")
		return
	}

	session := GetSessionID(c)
	if !g.valid(cookie, session) || !hmac.Equal([]byte(cookie), []byte(sent)) {
		rejectCSRF(c, "CSRF token invalid")
		return
	}
	c.Set(csrfContextKey, cookie)
	c.Next()
}

func (g csrfGuard) mint(session string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := hex.EncodeToString(nonce)
	return n + "." + g.sign(session, n), nil
}

func (g csrfGuard) sign(session, nonce string) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(session))
	mac.Write([]byte{'|'})
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g csrfGuard) valid(token, session string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(g.sign(session, nonce)))
}

// rejectCSRF aborts with 403. htmx requests keep the page as is and get a
// toast asking for a reload, since their token is the one of the loaded page.
func rejectCSRF(c *gin.Context, reason string) {
	if isHTMX(c) {
		c.Header("HX-Reswap", "none")
		pkg.Toast(c, "Session expirée, veuillez recharger la page", domain.NoticeError)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": reason})
}

// GetCSRFToken returns the token set by CSRF for the current request, or "".
func GetCSRFToken(c *gin.Context) string {
	token, _ := c.Get(csrfContextKey)
	s, _ := token.(string)
	return s
}
