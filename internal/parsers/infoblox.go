package parsers

// InfobloxDHCP parses Infoblox DHCP daemon syslog records. The header is
// split into its fields and the free-form message is left for the rule
// documents to stage-parse.
type InfobloxDHCP struct{}

// NewInfobloxDHCP creates the Infoblox DHCP parser.
func NewInfobloxDHCP() InfobloxDHCP {
	return InfobloxDHCP{}
}

// Parse splits the syslog header of an Infoblox DHCP record.
func (InfobloxDHCP) Parse(text string) (map[string]any, error) {
	return SplitSyslog(text)
}

// SourceType returns the source-type family handled by this parser.
func (InfobloxDHCP) SourceType() string { return "infoblox:dhcp" }
