package routes

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadTable builds a classification table from a YAML route file, merged
// over the compiled-in defaults. A missing file is not an error: the
// defaults are used unchanged. Lists in the file replace the corresponding
// default list wholesale.
//
// Expected file shape:
//
//	public:
//	  - /market
//	admin:
//	  - /admin
//	two_fa:
//	  - /api/wallet/withdraw
func LoadTable(path string) (*Table, error) {
	lists := DefaultLists()

	if path == "" {
		return New(lists), nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	dir, file := filepath.Split(path)
	v.SetConfigName(strings.TrimSuffix(file, filepath.Ext(file)))
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		// The route file is optional; only a malformed file is fatal.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return New(lists), nil
		}
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}

	if v.IsSet("public") {
		lists.Public = v.GetStringSlice("public")
	}
	if v.IsSet("auth_pages") {
		lists.AuthPages = v.GetStringSlice("auth_pages")
	}
	if v.IsSet("admin") {
		lists.Admin = v.GetStringSlice("admin")
	}
	if v.IsSet("two_fa") {
		lists.TwoFA = v.GetStringSlice("two_fa")
	}
	if v.IsSet("protected") {
		lists.Protected = v.GetStringSlice("protected")
	}

	return New(lists), nil
}
