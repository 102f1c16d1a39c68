package classify

import (
	"regexp"
	"strings"
)

// Parameter extraction is deterministic and regex-based regardless of which
// classification path produced the category. Keeping it out of the model's
// hands means a hallucinated reply can at worst misroute, never mistarget.
var (
	reResourceID = regexp.MustCompile(`(?i)\b(?:vm|virtual machine|container|ct|lxc|vmid|ctid)\s*#?(\d+)`)
	reBareID     = regexp.MustCompile(`\b(\d{3,5})\b`)
	reNode       = regexp.MustCompile(`(?i)\bnode\s+([a-zA-Z0-9\-_.]+)`)
	rePlaybook   = regexp.MustCompile(`(?i)\bplaybook\s+([a-zA-Z0-9\-_]+)`)
	reSnapshot   = regexp.MustCompile(`(?i)\bsnapshot\s+([a-zA-Z0-9\-_]+)`)
	reStorage    = regexp.MustCompile(`(?i)\bstorage\s+([a-zA-Z0-9\-_]+)`)
	reUser       = regexp.MustCompile(`(?i)\buser\s+([a-zA-Z0-9\-_@.]+)`)
)

// verb → operation hint, checked in declaration order so that the more
// specific verbs win ("restart" before "start").
var operationHints = []struct {
	verbs     []string
	operation string
}{
	{[]string{"delete", "remove", "destroy", "purge"}, "delete"},
	{[]string{"restart", "reboot"}, "restart"},
	{[]string{"start", "boot", "resume", "run "}, "start"},
	{[]string{"stop", "shutdown", "halt", "suspend"}, "stop"},
	{[]string{"create", "new ", "add ", "provision", "clone", "backup of", "back up", "snapshot of"}, "create"},
	{[]string{"update", "modify", "set ", "resize", "change", "configure"}, "modify"},
	{[]string{"list", "show", "get ", "status", "describe", "summarize", "usage", "check"}, "read"},
}

// ExtractParams pulls structured parameters out of the instruction text.
func ExtractParams(text string) map[string]string {
	params := make(map[string]string)
	lower := strings.ToLower(text)

	for _, h := range operationHints {
		for _, v := range h.verbs {
			if strings.Contains(lower, v) {
				params["operation"] = h.operation
				break
			}
		}
		if params["operation"] != "" {
			break
		}
	}

	if m := reResourceID.FindStringSubmatch(text); m != nil {
		params["resource_id"] = m[1]
	} else if m := reBareID.FindStringSubmatch(text); m != nil {
		params["resource_id"] = m[1]
	}
	if m := reNode.FindStringSubmatch(text); m != nil {
		params["node"] = m[1]
	}
	if m := rePlaybook.FindStringSubmatch(text); m != nil {
		params["playbook"] = m[1]
	}
	if m := reSnapshot.FindStringSubmatch(text); m != nil {
		params["snapshot"] = m[1]
	}
	if m := reStorage.FindStringSubmatch(text); m != nil {
		params["storage"] = m[1]
	}
	if m := reUser.FindStringSubmatch(text); m != nil {
		params["user"] = m[1]
	}

	switch {
	case strings.Contains(lower, "running") || strings.Contains(lower, "active"):
		params["status_filter"] = "running"
	case strings.Contains(lower, "stopped") || strings.Contains(lower, "inactive"):
		params["status_filter"] = "stopped"
	}

	return params
}
