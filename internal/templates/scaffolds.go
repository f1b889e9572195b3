package templates

import "github.com/autonoma/autonoma-backend/internal/catalog"

// The compiled-in scaffolds. Base files never touch permission-gated
// chrome.* APIs; the builders append those blocks only when the matching
// permission is declared.

func defaultBundles() []Bundle {
	return []Bundle{
		{
			Archetype: catalog.TypePopup,
			Files: []FileTemplate{
				{Path: "popup.html", Type: "html", Description: "Extension popup HTML interface", Content: popupHTML},
				{Path: "popup.js", Type: "js", Description: "Extension popup JavaScript logic", Content: popupJS},
				{Path: "popup.css", Type: "css", Description: "Extension popup styles", Content: popupCSS},
			},
		},
		{
			Archetype: catalog.TypeContentScript,
			Files: []FileTemplate{
				{Path: "content.js", Type: "js", Description: "Content script injected into matching pages", Content: contentJS},
				{Path: "content.css", Type: "css", Description: "Styles injected into matching pages", Content: contentCSS},
			},
		},
		{
			Archetype: catalog.TypeBackground,
			Files: []FileTemplate{
				{Path: "background.js", Type: "js", Description: "Background service worker", Content: backgroundJS},
			},
		},
		{
			Archetype: catalog.TypeDevTools,
			Files: []FileTemplate{
				{Path: "devtools.html", Type: "html", Description: "DevTools page entry point", Content: devtoolsHTML},
				{Path: "devtools.js", Type: "js", Description: "DevTools panel creation and management", Content: devtoolsJS},
				{Path: "panel.html", Type: "html", Description: "DevTools panel interface", Content: panelHTML},
				{Path: "panel.js", Type: "js", Description: "DevTools panel logic", Content: panelJS},
			},
		},
		{
			Archetype: catalog.TypeOptions,
			Files: []FileTemplate{
				{Path: "options.html", Type: "html", Description: "Options page interface", Content: optionsHTML},
				{Path: "options.js", Type: "js", Description: "Options page logic", Content: optionsJS},
				{Path: "options.css", Type: "css", Description: "Options page styles", Content: optionsCSS},
			},
		},
	}
}

const popupHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{name}}</title>
  <link rel="stylesheet" href="popup.css">
</head>
<body>
  <div class="popup-container">
    <header class="popup-header">
      <img src="icons/icon32.png" alt="" class="popup-icon">
      <h1>{{name}}</h1>
    </header>
    <main class="popup-body">
      <p class="popup-description">{{description}}</p>
      <div id="content" class="popup-content"></div>
      <button id="primary-action" class="primary-button">Get Started</button>
    </main>
    <footer class="popup-footer">
      <span id="status" class="status-text"></span>
    </footer>
  </div>
  <script src="popup.js"></script>
</body>
</html>
`

const popupJS = `// {{name}} - popup logic

document.addEventListener('DOMContentLoaded', () => {
  const actionButton = document.getElementById('primary-action');
  const status = document.getElementById('status');

  actionButton.addEventListener('click', () => {
    setStatus('Working...');
    runPrimaryAction()
      .then(() => setStatus('Done'))
      .catch((err) => setStatus('Error: ' + err.message));
  });

  function setStatus(text) {
    status.textContent = text;
  }

  async function runPrimaryAction() {
    const content = document.getElementById('content');
    const entry = document.createElement('div');
    entry.className = 'content-entry';
    entry.textContent = new Date().toLocaleTimeString();
    content.prepend(entry);
  }
});
`

const popupCSS = `:root {
  --bg: #ffffff;
  --fg: #1f2328;
  --accent: #2563eb;
  --muted: #6b7280;
}

@media (prefers-color-scheme: dark) {
  :root {
    --bg: #111827;
    --fg: #f3f4f6;
    --accent: #60a5fa;
    --muted: #9ca3af;
  }
}

body {
  margin: 0;
  font-family: system-ui, -apple-system, sans-serif;
  background: var(--bg);
  color: var(--fg);
}

.popup-container {
  width: 300px;
  padding: 12px;
}

.popup-header {
  display: flex;
  align-items: center;
  gap: 8px;
  border-bottom: 1px solid var(--muted);
  padding-bottom: 8px;
}

.popup-header h1 {
  font-size: 16px;
  margin: 0;
}

.popup-icon {
  width: 24px;
  height: 24px;
}

.popup-description {
  color: var(--muted);
  font-size: 12px;
}

.popup-content {
  max-height: 180px;
  overflow-y: auto;
  margin-bottom: 8px;
}

.content-entry {
  padding: 4px 0;
  font-size: 13px;
  border-bottom: 1px dashed var(--muted);
}

.primary-button {
  width: 100%;
  padding: 8px;
  border: none;
  border-radius: 6px;
  background: var(--accent);
  color: #fff;
  font-size: 13px;
  cursor: pointer;
}

.primary-button:hover {
  filter: brightness(1.1);
}

.popup-footer {
  margin-top: 8px;
}

.status-text {
  font-size: 11px;
  color: var(--muted);
}
`

const contentJS = `// {{name}} - content script

(() => {
  if (window.__extensionInjected) {
    return;
  }
  window.__extensionInjected = true;

  const badge = document.createElement('div');
  badge.className = 'ext-badge';
  badge.textContent = '{{name}} active';
  document.documentElement.appendChild(badge);
  setTimeout(() => badge.classList.add('ext-badge-hidden'), 3000);

  function enhancePage() {
    // Page enhancement entry point.
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', enhancePage);
  } else {
    enhancePage();
  }
})();
`

const contentCSS = `.ext-badge {
  position: fixed;
  top: 16px;
  right: 16px;
  z-index: 2147483647;
  padding: 6px 12px;
  border-radius: 6px;
  background: rgba(37, 99, 235, 0.92);
  color: #fff;
  font: 12px system-ui, sans-serif;
  transition: opacity 0.4s ease;
}

.ext-badge-hidden {
  opacity: 0;
  pointer-events: none;
}
`

const backgroundJS = `// {{name}} - background service worker

chrome.runtime.onInstalled.addListener((details) => {
  console.log('{{name}} installed:', details.reason);
});

chrome.runtime.onMessage.addListener((message, sender, sendResponse) => {
  if (message && message.type === 'ping') {
    sendResponse({ type: 'pong', at: Date.now() });
    return true;
  }
  return false;
});
`

const devtoolsHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
</head>
<body>
  <script src="devtools.js"></script>
</body>
</html>
`

const devtoolsJS = `// {{name}} - devtools panel registration

chrome.devtools.panels.create(
  '{{name}}',
  'icons/icon32.png',
  'panel.html',
  (panel) => {
    panel.onShown.addListener(() => {
      console.log('{{name}} panel shown');
    });
  }
);
`

const panelHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{name}}</title>
  <style>
    body { margin: 0; font: 13px system-ui, sans-serif; background: #1e1e1e; color: #d4d4d4; }
    header { padding: 8px 12px; border-bottom: 1px solid #3c3c3c; }
    #log { padding: 12px; white-space: pre-wrap; }
  </style>
</head>
<body>
  <header>{{name}}</header>
  <div id="log"></div>
  <script src="panel.js"></script>
</body>
</html>
`

const panelJS = `// {{name}} - devtools panel logic

const log = document.getElementById('log');

function append(line) {
  log.textContent += line + '\n';
}

append('{{name}} ready.');
append('Inspecting window: ' + (chrome.devtools.inspectedWindow.tabId || 'unknown'));
`

const optionsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{name}} Options</title>
  <link rel="stylesheet" href="options.css">
</head>
<body>
  <div class="options-container">
    <h1>{{name}}</h1>
    <p class="options-description">{{description}}</p>
    <form id="options-form">
      <label class="option-row">
        <input type="checkbox" id="enabled" checked>
        Enable extension
      </label>
      <label class="option-row">
        Display name
        <input type="text" id="display-name" placeholder="{{name}}">
      </label>
      <button type="submit" class="save-button">Save</button>
    </form>
    <p id="save-status" class="save-status"></p>
  </div>
  <script src="options.js"></script>
</body>
</html>
`

const optionsJS = `// {{name}} - options page logic

document.addEventListener('DOMContentLoaded', () => {
  const form = document.getElementById('options-form');
  const status = document.getElementById('save-status');

  form.addEventListener('submit', (event) => {
    event.preventDefault();
    saveOptions()
      .then(() => {
        status.textContent = 'Options saved.';
        setTimeout(() => { status.textContent = ''; }, 2000);
      })
      .catch((err) => {
        status.textContent = 'Save failed: ' + err.message;
      });
  });

  async function saveOptions() {
    const options = {
      enabled: document.getElementById('enabled').checked,
      displayName: document.getElementById('display-name').value,
    };
    return options;
  }
});
`

const optionsCSS = `body {
  margin: 0;
  font-family: system-ui, -apple-system, sans-serif;
  background: #f9fafb;
  color: #1f2328;
}

.options-container {
  max-width: 560px;
  margin: 40px auto;
  padding: 24px;
  background: #fff;
  border: 1px solid #e5e7eb;
  border-radius: 8px;
}

.options-description {
  color: #6b7280;
}

.option-row {
  display: block;
  margin: 12px 0;
  font-size: 14px;
}

.option-row input[type="text"] {
  display: block;
  width: 100%;
  margin-top: 4px;
  padding: 6px 8px;
  border: 1px solid #d1d5db;
  border-radius: 4px;
}

.save-button {
  margin-top: 16px;
  padding: 8px 20px;
  border: none;
  border-radius: 6px;
  background: #2563eb;
  color: #fff;
  cursor: pointer;
}

.save-status {
  min-height: 18px;
  font-size: 13px;
  color: #047857;
}
`
