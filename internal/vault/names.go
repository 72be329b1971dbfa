package vault

import (
	"fmt"
	"strings"
)

// checkName rejects document names that could escape the vault's namespace.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid document name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}
