package builder

import (
	"fmt"
	"strings"
)

// gatedSnippets maps a permission to the code block builders append when
// that permission is declared. activeTab has no API namespace of its
// own, so it contributes no block.
var gatedSnippets = map[string]string{
	"storage": `// --- storage ---
const extStorage = {
  async get(key, fallback) {
    const data = await chrome.storage.local.get({ [key]: fallback });
    return data[key];
  },
  async set(key, value) {
    await chrome.storage.local.set({ [key]: value });
  },
};
`,
	"notifications": `// --- notifications ---
function notify(title, message) {
  chrome.notifications.create({
    type: 'basic',
    iconUrl: 'icons/icon48.png',
    title,
    message,
  });
}
`,
	"alarms": `// --- alarms ---
chrome.alarms.create('periodic-check', { periodInMinutes: 30 });
chrome.alarms.onAlarm.addListener((alarm) => {
  if (alarm.name === 'periodic-check') {
    console.log('periodic check fired');
  }
});
`,
	"tabs": `// --- tabs ---
async function listTabs() {
  const tabs = await chrome.tabs.query({ currentWindow: true });
  return tabs.map((tab) => ({ id: tab.id, title: tab.title, url: tab.url }));
}
`,
	"scripting": `// --- scripting ---
async function runInActiveTab(func) {
  const [tab] = await chrome.tabs.query({ active: true, currentWindow: true });
  if (!tab || tab.id === undefined) {
    return;
  }
  await chrome.scripting.executeScript({ target: { tabId: tab.id }, func });
}
`,
	"cookies": `// --- cookies ---
async function readCookies(url) {
  return chrome.cookies.getAll({ url });
}
`,
	"history": `// --- history ---
async function recentHistory(limit) {
  return chrome.history.search({ text: '', maxResults: limit || 20 });
}
`,
	"bookmarks": `// --- bookmarks ---
async function listBookmarks() {
  const tree = await chrome.bookmarks.getTree();
  return tree;
}
`,
	"webRequest": `// --- webRequest ---
chrome.webRequest.onCompleted.addListener(
  (details) => {
    console.log('request completed:', details.url);
  },
  { urls: ['<all_urls>'] }
);
`,
}

// scripting helpers need tab lookup, which rides on the tabs or
// activeTab grant. The snippet table stays per-permission; the mapping
// below is what the gate check enforces.
var apiNamespaceToPermission = map[string]string{
	"chrome.storage":       "storage",
	"chrome.notifications": "notifications",
	"chrome.alarms":        "alarms",
	"chrome.tabs":          "tabs",
	"chrome.scripting":     "scripting",
	"chrome.cookies":       "cookies",
	"chrome.history":       "history",
	"chrome.bookmarks":     "bookmarks",
	"chrome.webRequest":    "webRequest",
}

// snippetsFor returns the blocks for the declared permissions in
// declaration order.
func snippetsFor(permissions []string) []string {
	var blocks []string
	for _, perm := range permissions {
		if block, ok := gatedSnippets[perm]; ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// CheckGatedAPIs scans script files for chrome API namespaces that
// require a permission the extension never declared. The builders only
// emit gated blocks for declared permissions, so a hit here means a
// drafted file overstepped; the caller treats that as a build defect.
func CheckGatedAPIs(files FileSet, permissions []string) error {
	declared := map[string]bool{}
	for _, perm := range permissions {
		declared[perm] = true
	}
	// chrome.tabs.query with active:true works under activeTab too.
	if declared["activeTab"] || declared["scripting"] {
		declared["tabs"] = true
	}
	for _, f := range files {
		if f.Type != "js" {
			continue
		}
		for namespace, perm := range apiNamespaceToPermission {
			if declared[perm] {
				continue
			}
			if strings.Contains(f.Content, namespace+".") {
				return fmt.Errorf("file %q uses %s but permission %q was not declared", f.Path, namespace, perm)
			}
		}
	}
	return nil
}
