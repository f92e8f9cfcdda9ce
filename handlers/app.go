// handlers/app.go
package handlers

import "github.com/gofiber/fiber/v2"

const bodyLimit = 64 * 1024

// NewAppConfig builds the Fiber config. c.IP() resolves to the first valid address in
// proxyHeader, which the gateway fills with the player's IP. With trustedProxies set, the
// header is only honored on connections from those addresses.
func NewAppConfig(proxyHeader string, trustedProxies []string) fiber.Config {
	return fiber.Config{
		BodyLimit:               bodyLimit,
		ErrorHandler:            ErrorHandler,
		ProxyHeader:             proxyHeader,
		EnableIPValidation:      true,
		EnableTrustedProxyCheck: len(trustedProxies) > 0,
		TrustedProxies:          trustedProxies,
	}
}
