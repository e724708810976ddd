package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"onionbot/internal/api"
	"onionbot/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, apiFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) baseURL() string {
	if c.apiFlag != nil {
		if value := strings.TrimSpace(*c.apiFlag); value != "" {
			return value
		}
	}
	if c.config != nil {
		return api.BaseURL(c.config.Paths.APIBind)
	}
	return "http://127.0.0.1:5000"
}

func (c *commandContext) token() string {
	if c.tokenFlag != nil {
		if value := strings.TrimSpace(*c.tokenFlag); value != "" {
			return value
		}
	}
	if c.config != nil {
		return c.config.Paths.APIToken
	}
	return ""
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	base := c.baseURL()
	return wrapClientError(fn(api.NewClient(base, c.token())), base)
}

func wrapClientError(err error, base string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `onionbot run`", base)
	default:
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			return fmt.Errorf("daemon rejected the request: set --token or paths.api_token")
		}
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
