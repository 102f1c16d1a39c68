package classify

import (
	"strings"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// keywordEntry binds a category to its trigger words. Entries are checked in
// order; the first category with a matching trigger wins, so the more
// specific vocabularies come first and the generic API category last.
type keywordEntry struct {
	category contracts.Category
	triggers []string
}

func defaultKeywordTable() []keywordEntry {
	return []keywordEntry{
		{contracts.CategoryBackup, []string{"backup", "back up", "vzdump", "restore"}},
		{contracts.CategoryContainer, []string{"container", "lxc", " ct ", "ctid"}},
		{contracts.CategoryVM, []string{"vm", "virtual machine", "qemu", "kvm"}},
		{contracts.CategoryStorage, []string{"storage", "disk", "volume", "zfs", "lvm"}},
		{contracts.CategoryCluster, []string{"cluster", "quorum", "ha ", "migration", "datacenter"}},
		{contracts.CategoryMonitoring, []string{"usage", "cpu", "memory", "load", "performance", "metrics", "health"}},
		{contracts.CategoryAccess, []string{"user", "permission", "role", "token", "acl"}},
		{contracts.CategoryFirewall, []string{"firewall", "rule", "ipset", "security group"}},
		{contracts.CategoryAPI, []string{"api", "endpoint", "request", "node", "task"}},
	}
}

// KeywordFallback is the deterministic classifier used when the completion
// service is unavailable. Substring matching against a static trigger table:
// reduced accuracy, but it keeps the system usable offline.
type KeywordFallback struct {
	table []keywordEntry
}

// NewKeywordFallback returns a fallback with the built-in trigger table.
// Extra entries are prepended so operator overrides win over the defaults.
func NewKeywordFallback(overrides map[string][]string) *KeywordFallback {
	table := defaultKeywordTable()
	if len(overrides) > 0 {
		custom := make([]keywordEntry, 0, len(overrides))
		for cat, triggers := range overrides {
			custom = append(custom, keywordEntry{category: contracts.Category(cat), triggers: triggers})
		}
		table = append(custom, table...)
	}
	return &KeywordFallback{table: table}
}

// Match classifies text by substring. The returned intent carries a fixed
// mid-range confidence and the Fallback flag; a miss returns ok=false.
func (k *KeywordFallback) Match(text string) (contracts.Intent, bool) {
	lower := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	for _, e := range k.table {
		for _, trigger := range e.triggers {
			if strings.Contains(lower, trigger) {
				return contracts.Intent{
					Category:   e.category,
					Parameters: ExtractParams(text),
					Confidence: 0.5,
					Fallback:   true,
				}, true
			}
		}
	}
	return contracts.Intent{}, false
}
