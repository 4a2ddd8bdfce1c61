package parsers

import (
	"fmt"
	"strconv"
	"strings"
)

// Syslog attribute names produced by the header splitter.
const (
	SyslogFacility  = "facility"
	SyslogSeverity  = "severity"
	SyslogTimestamp = "timestamp"
	SyslogHost      = "host"
	SyslogProcName  = "process_name"
	SyslogProcID    = "pid"
	SyslogMessage   = "message"
)

// SplitSyslog splits a classic BSD syslog record into its header fields
// and the free-form message:
//
//	<30>Sep 28 10:15:46 192.168.1.2 dhcpd[13613]: DHCPACK on ...
//
// The priority and tag are optional; whatever cannot be attributed to the
// header stays in the message.
func SplitSyslog(text string) (map[string]any, error) {
	out := map[string]any{}
	rest := text

	if strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return nil, fmt.Errorf("syslog: unterminated priority in %q", clip(text))
		}
		pri, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return nil, fmt.Errorf("syslog: bad priority in %q", clip(text))
		}
		out[SyslogFacility] = pri / 8
		out[SyslogSeverity] = pri % 8
		rest = rest[end+1:]
	}

	// Timestamp: "Mmm dd hh:mm:ss", day may be space padded.
	if len(rest) < 16 || rest[15] != ' ' {
		return nil, fmt.Errorf("syslog: missing timestamp in %q", clip(text))
	}
	out[SyslogTimestamp] = rest[:15]
	rest = rest[16:]

	host, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return nil, fmt.Errorf("syslog: missing hostname in %q", clip(text))
	}
	out[SyslogHost] = host

	// Optional "tag[pid]:" or "tag:" prefix ahead of the message.
	if tag, msg, found := strings.Cut(rest, ": "); found && !strings.ContainsAny(tag, " ") {
		name := tag
		if open := strings.Index(tag, "["); open >= 0 && strings.HasSuffix(tag, "]") {
			if pid, err := strconv.Atoi(tag[open+1 : len(tag)-1]); err == nil {
				out[SyslogProcID] = pid
			}
			name = tag[:open]
		}
		out[SyslogProcName] = name
		rest = msg
	}

	out[SyslogMessage] = rest
	return out, nil
}

func clip(s string) string {
	const max = 48
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
