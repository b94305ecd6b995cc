package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath  string // Path to write the HTML file
	EmbedAssets bool   // Embed the diagnostic as base64 (makes file larger but portable)
	Title       string // Report title (default: "Wizard Report")
	ReportDir   string // Directory containing report.json (needed for asset paths)
}

// GenerateHTML generates an HTML report from the report directory.
func GenerateHTML(reportDir string, cfg HTMLConfig) error {
	rep, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = rep.Title
	}
	if cfg.Title == "" {
		cfg.Title = "Wizard Report"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = reportDir
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, HTMLFile)
	}

	html, err := renderHTML(buildHTMLData(rep, cfg))
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Report        *Report
	Steps         []StepHTMLData
	Environment   []InfoRow
	TotalDuration string
	PassRate      float64
	Live          bool         // Run still in progress; the page refreshes itself
	Diagnostic    template.URL // base64 data URI or relative path
	JSONData      template.JS
}

// StepHTMLData contains step data formatted for HTML.
type StepHTMLData struct {
	Step
	DurationStr string
}

// InfoRow is one line of the environment table.
type InfoRow struct {
	Label string
	Value string
}

func buildHTMLData(rep *Report, cfg HTMLConfig) HTMLData {
	steps := make([]StepHTMLData, len(rep.Steps))
	for i, s := range rep.Steps {
		steps[i] = StepHTMLData{Step: s, DurationStr: formatDuration(s.Duration)}
	}

	var passRate float64
	if rep.Summary.Total > 0 {
		passRate = float64(rep.Summary.Passed+rep.Summary.Warned) / float64(rep.Summary.Total) * 100
	}

	var diagnostic template.URL
	if rep.Diagnostic != "" {
		if cfg.EmbedAssets {
			diagnostic = template.URL(loadAsBase64(filepath.Join(cfg.ReportDir, rep.Diagnostic))) //#nosec G203 -- data URI built from our own asset
		} else {
			diagnostic = template.URL(filepath.ToSlash(rep.Diagnostic)) //#nosec G203 -- relative asset path
		}
	}

	jsonBytes, _ := json.Marshal(rep)

	return HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Report:        rep,
		Steps:         steps,
		Environment:   environmentRows(rep),
		TotalDuration: formatDuration(rep.Duration),
		PassRate:      passRate,
		Live:          !rep.Status.IsTerminal(),
		Diagnostic:    diagnostic,
		JSONData:      template.JS(jsonBytes),
	}
}

func environmentRows(rep *Report) []InfoRow {
	env := rep.Environment
	rows := []InfoRow{
		{"Driver", env.Driver},
		{"Browser", strings.TrimSpace(env.Browser + " " + env.BrowserVersion)},
		{"Headless", fmt.Sprintf("%t", env.Headless)},
		{"OS", env.OS + "/" + env.Arch},
		{"Host", env.Host},
		{"Runner", env.RunnerVersion},
		{"Trip", rep.Flow.StartDate + " .. " + rep.Flow.EndDate},
	}

	keys := make([]string, 0, len(rep.SystemInfo))
	for k := range rep.SystemInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, InfoRow{k, rep.SystemInfo[k]})
	}

	out := rows[:0]
	for _, r := range rows {
		if strings.TrimSpace(r.Value) != "" {
			out = append(out, r)
		}
	}
	return out
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	d := time.Duration(*ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", *ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path) //#nosec G304 -- asset inside the report directory
	if err != nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    {{if .Live}}<meta http-equiv="refresh" content="2">{{end}}
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #0f1115;
            --bg-secondary: #171a21;
            --bg-tertiary: #1f232c;
            --text-primary: #e5e7eb;
            --text-secondary: #9ca3af;
            --text-muted: #6b7280;
            --border-color: #2a2f3a;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.12);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.12);
            --warned: #f59e0b;
            --warned-bg: rgba(245, 158, 11, 0.12);
            --skipped: #6b7280;
            --running: #06b6d4;
            --pending: #4b5563;
            --accent: #06b6d4;
        }

        * {
            box-sizing: border-box;
            margin: 0;
            padding: 0;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        /* Header */
        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-top {
            display: flex;
            align-items: center;
            justify-content: space-between;
            margin-bottom: 16px;
        }

        .header-title-main {
            font-size: 18px;
            font-weight: 600;
        }

        .header-title-sub {
            display: block;
            font-size: 12px;
            color: var(--text-muted);
        }

        .outcome-badge {
            padding: 4px 12px;
            border-radius: 999px;
            font-size: 13px;
            font-weight: 600;
            text-transform: uppercase;
            letter-spacing: 0.04em;
        }

        .outcome-badge.passed { background: var(--passed-bg); color: var(--passed); }
        .outcome-badge.failed, .outcome-badge.errored { background: var(--failed-bg); color: var(--failed); }
        .outcome-badge.warned { background: var(--warned-bg); color: var(--warned); }
        .outcome-badge.running, .outcome-badge.pending { background: var(--bg-tertiary); color: var(--running); }

        /* Dashboard */
        .dashboard {
            display: grid;
            grid-template-columns: repeat(2, 1fr);
            gap: 16px;
        }

        .card {
            background: var(--bg-tertiary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 12px 16px;
        }

        .counts {
            display: flex;
            gap: 20px;
            font-size: 14px;
        }

        .count-value {
            display: block;
            font-size: 22px;
            font-weight: 600;
        }

        .count.passed .count-value { color: var(--passed); }
        .count.failed .count-value { color: var(--failed); }
        .count.warned .count-value { color: var(--warned); }
        .count.skipped .count-value { color: var(--skipped); }

        .progress {
            margin-top: 12px;
            height: 6px;
            background: var(--bg-primary);
            border-radius: 3px;
            overflow: hidden;
        }

        .progress-fill {
            height: 100%;
            background: var(--passed);
        }

        .env-item {
            display: flex;
            justify-content: space-between;
            font-size: 13px;
            padding: 2px 0;
        }

        .env-label { color: var(--text-secondary); }

        /* Steps */
        .main-container {
            padding: 24px;
            display: grid;
            gap: 16px;
        }

        .filters {
            display: flex;
            gap: 8px;
        }

        .filter-btn {
            background: var(--bg-secondary);
            color: var(--text-secondary);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 4px 12px;
            cursor: pointer;
        }

        .filter-btn.active {
            color: var(--accent);
            border-color: var(--accent);
        }

        .step {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-left: 3px solid var(--pending);
            border-radius: 6px;
        }

        .step.passed { border-left-color: var(--passed); }
        .step.failed, .step.errored { border-left-color: var(--failed); }
        .step.warned { border-left-color: var(--warned); }
        .step.skipped { border-left-color: var(--skipped); opacity: 0.7; }
        .step.running { border-left-color: var(--running); }

        .step-header {
            display: flex;
            align-items: center;
            gap: 12px;
            padding: 10px 14px;
            cursor: pointer;
        }

        .step-index {
            color: var(--text-muted);
            font-variant-numeric: tabular-nums;
            width: 24px;
        }

        .step-name { font-weight: 600; flex: 1; }

        .step-status {
            font-size: 12px;
            text-transform: uppercase;
            color: var(--text-secondary);
        }

        .step-duration {
            font-size: 12px;
            color: var(--text-muted);
            width: 64px;
            text-align: right;
        }

        .tag {
            font-size: 11px;
            padding: 1px 6px;
            border-radius: 4px;
            background: var(--bg-tertiary);
            color: var(--text-secondary);
        }

        .step-body {
            display: none;
            padding: 0 14px 12px 50px;
            font-size: 13px;
        }

        .step.open .step-body { display: block; }

        .step-body dt {
            color: var(--text-muted);
            margin-top: 6px;
        }

        .step-body dd {
            font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
            word-break: break-all;
        }

        .error-box {
            margin-top: 8px;
            padding: 8px 10px;
            border-radius: 4px;
            background: var(--failed-bg);
            color: var(--failed);
            font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
            white-space: pre-wrap;
        }

        .step.warned .error-box {
            background: var(--warned-bg);
            color: var(--warned);
        }

        .diagnostic img {
            max-width: 100%;
            border: 1px solid var(--border-color);
            border-radius: 6px;
            margin-top: 8px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-top">
            <div class="header-title">
                <span class="header-title-main">{{.Title}}</span>
                <span class="header-title-sub">{{.Report.Flow.Name}} &middot; {{.Report.Flow.URL}} &middot; {{.GeneratedAt}} &middot; run {{.Report.RunID}}</span>
            </div>
            <span class="outcome-badge {{.Report.Status}}">{{if .Report.Outcome}}{{.Report.Outcome}}{{else}}{{.Report.Status}}{{end}}</span>
        </div>
        <div class="dashboard">
            <div class="card">
                <div class="counts">
                    <div class="count passed"><span class="count-value">{{.Report.Summary.Passed}}</span>passed</div>
                    <div class="count failed"><span class="count-value">{{.Report.Summary.Failed}}</span>failed</div>
                    <div class="count warned"><span class="count-value">{{.Report.Summary.Warned}}</span>warned</div>
                    <div class="count skipped"><span class="count-value">{{.Report.Summary.Skipped}}</span>skipped</div>
                    <div class="count"><span class="count-value">{{.TotalDuration}}</span>duration</div>
                </div>
                <div class="progress"><div class="progress-fill" style="width: {{printf "%.1f" .PassRate}}%"></div></div>
            </div>
            <div class="card env-card">
                {{range .Environment}}
                <div class="env-item">
                    <span class="env-label">{{.Label}}</span>
                    <span class="env-value">{{.Value}}</span>
                </div>
                {{end}}
            </div>
        </div>
    </div>

    <div class="main-container">
        {{if .Report.Error}}<div class="error-box">{{.Report.Error}}</div>{{end}}
        <div class="filters">
            <button class="filter-btn active" data-filter="all">All ({{.Report.Summary.Total}})</button>
            <button class="filter-btn" data-filter="failed">Failed ({{.Report.Summary.Failed}})</button>
            <button class="filter-btn" data-filter="warned">Warned ({{.Report.Summary.Warned}})</button>
        </div>
        <div class="steps" id="steps">
            {{range .Steps}}
            <div class="step {{.Status}}{{if or (eq .Status "failed") (eq .Status "errored")}} open{{end}}" data-status="{{.Status}}">
                <div class="step-header">
                    <span class="step-index">{{.Index}}</span>
                    <span class="step-name">{{.Name}}</span>
                    {{if .Soft}}<span class="tag">soft</span>{{end}}
                    {{if .UsedFallback}}<span class="tag">fallback</span>{{end}}
                    <span class="step-status">{{.Status}}</span>
                    <span class="step-duration">{{.DurationStr}}</span>
                </div>
                <div class="step-body">
                    <dl>
                        <dt>Action</dt><dd>{{.Action}}</dd>
                        <dt>Locator</dt><dd>{{if .Locator}}{{.Locator}}{{else}}{{.Selector}}{{end}}</dd>
                        <dt>Attempts</dt><dd>{{.Attempts}}</dd>
                        {{if .Data}}<dt>Value</dt><dd>{{.Data}}</dd>{{end}}
                        {{if .Trace}}<dt>Trace</dt><dd>{{range $i, $s := .Trace}}{{if $i}} &rarr; {{end}}{{$s}}{{end}}</dd>{{end}}
                    </dl>
                    {{if .Message}}<div class="error-box">{{if .Category}}[{{.Category}}] {{end}}{{.Message}}{{if .Error}}
{{.Error}}{{end}}</div>{{end}}
                </div>
            </div>
            {{end}}
        </div>
        {{if .Diagnostic}}
        <div class="card diagnostic">
            <span class="env-label">Diagnostic at failure</span>
            <img src="{{.Diagnostic}}" alt="Diagnostic screenshot">
        </div>
        {{end}}
    </div>

    <script>
        const reportData = {{.JSONData}};

        document.querySelectorAll('.step-header').forEach(function (h) {
            h.addEventListener('click', function () {
                h.parentElement.classList.toggle('open');
            });
        });

        document.querySelectorAll('.filter-btn').forEach(function (btn) {
            btn.addEventListener('click', function () {
                document.querySelectorAll('.filter-btn').forEach(function (b) { b.classList.remove('active'); });
                btn.classList.add('active');
                const filter = btn.dataset.filter;
                document.querySelectorAll('.step').forEach(function (s) {
                    const status = s.dataset.status;
                    const show = filter === 'all' ||
                        (filter === 'failed' && (status === 'failed' || status === 'errored')) ||
                        status === filter;
                    s.style.display = show ? '' : 'none';
                });
            });
        });

        console.debug('wizard-runner report', reportData.runId, reportData.outcome);
    </script>
</body>
</html>
`
