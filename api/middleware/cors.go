package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware applying the API's origin policy. Checkout is
// driven by third-party storefront embeds, so any origin may call with the
// standard client headers; the gateway's signature header is allowed so the
// webhook route shares the same policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Client-Info",
			"Apikey",
			"Stripe-Signature",
			"X-Requested-With",
		},
		MaxAge: 300,
	}).Handler
}
