package agent

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

var reAPIPath = regexp.MustCompile(`(?:^|\s)(/[a-zA-Z0-9\-_/{}.?=&%]+)`)

// apiAgent is the generic passthrough for instructions that name an API
// endpoint directly ("GET /nodes/pve1/tasks"). The operation, and therefore
// the risk level, is derived from the HTTP method.
type apiAgent struct{}

func methodOperation(method string) (contracts.Operation, error) {
	switch method {
	case http.MethodGet:
		return contracts.OpRead, nil
	case http.MethodPost:
		return contracts.OpCreate, nil
	case http.MethodPut:
		return contracts.OpModify, nil
	case http.MethodDelete:
		return contracts.OpDelete, nil
	default:
		return "", &contracts.InvalidParameterError{
			Name: "method", Reason: fmt.Sprintf("unsupported HTTP method %q", method),
		}
	}
}

func (a *apiAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	text := params["text"]

	method := http.MethodGet
	upper := strings.ToUpper(text)
	for _, m := range []string{http.MethodDelete, http.MethodPost, http.MethodPut, http.MethodGet} {
		if strings.Contains(upper, m+" ") {
			method = m
			break
		}
	}

	m := reAPIPath.FindStringSubmatch(text)
	if m == nil {
		return contracts.Action{}, &contracts.MissingParameterError{Name: "path"}
	}
	path := m[1]
	if !strings.HasPrefix(path, "/") {
		return contracts.Action{}, &contracts.InvalidParameterError{Name: "path", Reason: "must be absolute"}
	}

	op, err := methodOperation(method)
	if err != nil {
		return contracts.Action{}, err
	}

	return newAction(contracts.CategoryAPI, op, contracts.Target{Node: params["node"]}, map[string]any{
		"method": method,
		"path":   path,
	}), nil
}

func (a *apiAgent) Describe(action contracts.Action) string {
	method, _ := action.Payload["method"].(string)
	path, _ := action.Payload["path"].(string)
	return fmt.Sprintf("call %s %s", method, path)
}
