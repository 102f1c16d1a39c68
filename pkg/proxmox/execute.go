package proxmox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// guestPath returns the API path prefix for the guest type of a category.
func guestPath(category contracts.Category) string {
	if category == contracts.CategoryContainer {
		return "lxc"
	}
	return "qemu"
}

// Execute maps an authorized Action onto the PVE API and performs the call.
// The raw decoded response is returned under the "data" key so the caller
// can pass it through to the user untouched.
func (c *Client) Execute(ctx context.Context, action contracts.Action) (map[string]any, error) {
	method, path, form, err := endpointFor(action)
	if err != nil {
		return nil, err
	}

	var data any
	if err := c.call(ctx, method, path, form, &data); err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

// endpointFor resolves the method, path and form body for an action.
// Combinations the API has no verb for come back as a fault rather than a
// silent no-op.
func endpointFor(action contracts.Action) (method, path string, form url.Values, err error) {
	t := action.Target
	switch action.Category {
	case contracts.CategoryVM, contracts.CategoryContainer:
		return guestEndpoint(action)

	case contracts.CategoryStorage:
		switch action.Operation {
		case contracts.OpRead:
			if t.Node != "" {
				return http.MethodGet, "/nodes/" + t.Node + "/storage", nil, nil
			}
			return http.MethodGet, "/storage", nil, nil
		case contracts.OpCreate:
			return http.MethodPost, "/storage", payloadForm(action.Payload), nil
		case contracts.OpModify:
			return http.MethodPut, "/storage/" + t.ResourceID, payloadForm(action.Payload), nil
		case contracts.OpDelete:
			return http.MethodDelete, "/storage/" + t.ResourceID, nil, nil
		}

	case contracts.CategoryCluster:
		if action.Operation == contracts.OpRead {
			return http.MethodGet, "/cluster/status", nil, nil
		}

	case contracts.CategoryBackup:
		switch action.Operation {
		case contracts.OpRead:
			storage := stringPayload(action.Payload, "storage", "local")
			return http.MethodGet, "/nodes/" + t.Node + "/storage/" + storage + "/content?content=backup", nil, nil
		case contracts.OpCreate:
			form := payloadForm(action.Payload)
			form.Set("vmid", t.ResourceID)
			return http.MethodPost, "/nodes/" + t.Node + "/vzdump", form, nil
		}

	case contracts.CategoryMonitoring:
		if action.Operation == contracts.OpRead {
			if t.Node != "" {
				return http.MethodGet, "/nodes/" + t.Node + "/status", nil, nil
			}
			return http.MethodGet, "/cluster/resources", nil, nil
		}

	case contracts.CategoryAccess:
		switch action.Operation {
		case contracts.OpRead:
			return http.MethodGet, "/access/users", nil, nil
		case contracts.OpCreate:
			return http.MethodPost, "/access/users", payloadForm(action.Payload), nil
		case contracts.OpModify:
			return http.MethodPut, "/access/users/" + t.ResourceID, payloadForm(action.Payload), nil
		case contracts.OpDelete:
			return http.MethodDelete, "/access/users/" + t.ResourceID, nil, nil
		}

	case contracts.CategoryFirewall:
		switch action.Operation {
		case contracts.OpRead:
			return http.MethodGet, "/cluster/firewall/rules", nil, nil
		case contracts.OpCreate:
			return http.MethodPost, "/cluster/firewall/rules", payloadForm(action.Payload), nil
		case contracts.OpDelete:
			return http.MethodDelete, "/cluster/firewall/rules/" + t.ResourceID, nil, nil
		}

	case contracts.CategoryAPI:
		// Generic passthrough: the agent validated method and path.
		m := stringPayload(action.Payload, "method", http.MethodGet)
		p := stringPayload(action.Payload, "path", "")
		if p == "" {
			return "", "", nil, &contracts.RemoteFaultError{Detail: "api action without path"}
		}
		var form url.Values
		if m != http.MethodGet && m != http.MethodDelete {
			form = payloadForm(action.Payload)
			form.Del("method")
			form.Del("path")
		}
		return m, p, form, nil
	}

	return "", "", nil, &contracts.RemoteFaultError{
		Detail: fmt.Sprintf("no API mapping for %s on %s", action.Operation, action.Category),
	}
}

func guestEndpoint(action contracts.Action) (string, string, url.Values, error) {
	t := action.Target
	kind := guestPath(action.Category)

	switch action.Operation {
	case contracts.OpRead:
		if t.ResourceID == "" {
			return http.MethodGet, "/cluster/resources?type=vm", nil, nil
		}
		return http.MethodGet, fmt.Sprintf("/nodes/%s/%s/%s/status/current", t.Node, kind, t.ResourceID), nil, nil
	case contracts.OpStart:
		return http.MethodPost, fmt.Sprintf("/nodes/%s/%s/%s/status/start", t.Node, kind, t.ResourceID), url.Values{}, nil
	case contracts.OpStop:
		return http.MethodPost, fmt.Sprintf("/nodes/%s/%s/%s/status/stop", t.Node, kind, t.ResourceID), url.Values{}, nil
	case contracts.OpRestart:
		return http.MethodPost, fmt.Sprintf("/nodes/%s/%s/%s/status/reboot", t.Node, kind, t.ResourceID), url.Values{}, nil
	case contracts.OpDelete:
		return http.MethodDelete, fmt.Sprintf("/nodes/%s/%s/%s", t.Node, kind, t.ResourceID), nil, nil
	case contracts.OpCreate:
		form := payloadForm(action.Payload)
		if t.ResourceID != "" {
			form.Set("vmid", t.ResourceID)
		}
		return http.MethodPost, fmt.Sprintf("/nodes/%s/%s", t.Node, kind), form, nil
	case contracts.OpModify:
		return http.MethodPut, fmt.Sprintf("/nodes/%s/%s/%s/config", t.Node, kind, t.ResourceID), payloadForm(action.Payload), nil
	}

	return "", "", nil, &contracts.RemoteFaultError{
		Detail: fmt.Sprintf("no API mapping for %s on %s", action.Operation, action.Category),
	}
}

func payloadForm(payload map[string]any) url.Values {
	form := url.Values{}
	for k, v := range payload {
		form.Set(k, fmt.Sprint(v))
	}
	return form
}

func stringPayload(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
