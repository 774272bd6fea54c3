// Package tools registers the clinic tool set into the descriptor table.
// Patient tools are visible to both roles; reporting and history tools are
// doctor-only.
package tools

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/notify"
	"github.com/feldsher/feldsher/internal/toolreg"
)

var bothRoles = []toolreg.Role{toolreg.RolePatient, toolreg.RoleDoctor}
var doctorOnly = []toolreg.Role{toolreg.RoleDoctor}

// Deps carries the backends the tool handlers close over.
type Deps struct {
	Clinic   *clinic.DB
	Slack    *notify.Slack
	Telegram *notify.Telegram
	Mailer   *notify.Mailer
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// RegisterAll installs every clinic tool into the registry. Registration
// order fixes the order tools are advertised in.
func RegisterAll(reg *toolreg.Registry, deps *Deps) {
	registerPatientTools(reg, deps)
	registerDoctorTools(reg, deps)
}

// argString reads a string-typed argument, stringifying scalars.
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// argInt64 reads an integer argument, accepting JSON numbers and numeric strings.
func argInt64(args map[string]any, key string) (int64, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
