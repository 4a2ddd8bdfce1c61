package parsers

import (
	"github.com/telhawk-systems/telhawk-normalize/internal/pattern"
)

// Barracuda web filter records are fully positional, so the whole line is
// tokenized by pattern instead of deferring to rule-document stages.
const (
	barracudaAllowed = "ALLOWED"

	barracudaPart1 = "#{timestamp: string(syslog-time)} #{year: string(syslog-time)} #{daemon}: " +
		"#{epoch: integer} #{src_ip} #{dst_ip} #{content_type} #{src_ip2} #{destination_url} " +
		"#{data_size} BYF #{action} #{reason}"
	barracudaPart2 = " #{format_version} #{match_flag} #{tq_flag} #{action_type} #{src_type} " +
		"#{src_detail} #{dst_type} #{dst_detail} #{spy_type} #{spy_id} #{infection_score} " +
		"#{matched_part} #{matched_category} #{user_info} #{referer_url} #{referer_domain} " +
		"#{referer_category} #{wsa_remote_user_type}"
)

// BarracudaWAF parses Barracuda web filter syslog records.
type BarracudaWAF struct {
	allowed *pattern.Pattern
	blocked *pattern.Pattern
}

// NewBarracudaWAF creates the Barracuda parser with its allowed and
// blocked record grammars pre-compiled.
func NewBarracudaWAF() *BarracudaWAF {
	return &BarracudaWAF{
		allowed: pattern.MustCompile(barracudaPart1 + barracudaPart2),
		// Blocked records carry an extra details field after the reason.
		blocked: pattern.MustCompile(barracudaPart1 + " #{details} FOUND" + barracudaPart2),
	}
}

// Parse tokenizes one Barracuda record, retrying with the blocked-record
// grammar when the action is anything but ALLOWED.
func (p *BarracudaWAF) Parse(text string) (map[string]any, error) {
	data, err := p.allowed.Parse(text)
	if err != nil {
		return nil, err
	}
	if action, _ := data["action"].(string); action != barracudaAllowed {
		if blocked, err := p.blocked.Parse(text); err == nil {
			return blocked, nil
		}
	}
	return data, nil
}

// SourceType returns the source-type family handled by this parser.
func (p *BarracudaWAF) SourceType() string { return "barracuda:syslog" }
