// Package options is the long/short option parser shared by the commands.
//
// Long options take their value bound with '=' (--output=FILE). Short
// options take the next free argument (-o FILE), may be grouped (-Hf) and
// integer short options count repetitions (-vvv is 3). Everything after "--"
// is positional.
package options

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OptionType defines the type of value an option expects
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeString
	OptionTypeInt
)

// OptionDef defines a command-line option
type OptionDef struct {
	Long        string     // Long option name (without --)
	Short       string     // Short option name (without -)
	Type        OptionType // Type of value expected
	Description string     // Help description
	Default     string     // Default value
}

// ParsedOptions holds the parsed command-line options
type ParsedOptions struct {
	values        map[string]string
	args          []string
	defs          map[string]*OptionDef
	order         []string          // definition order, for usage output
	shortMap      map[string]string // Maps short options to long options
	explicitlySet map[string]bool   // Tracks which options were explicitly set
}

// NewParsedOptions creates a new options parser
func NewParsedOptions() *ParsedOptions {
	return &ParsedOptions{
		values:        make(map[string]string),
		defs:          make(map[string]*OptionDef),
		shortMap:      make(map[string]string),
		explicitlySet: make(map[string]bool),
	}
}

// DefineOption defines a command-line option
func (p *ParsedOptions) DefineOption(long, short string, optType OptionType, defaultValue, description string) {
	p.defs[long] = &OptionDef{
		Long:        long,
		Short:       short,
		Type:        optType,
		Description: description,
		Default:     defaultValue,
	}
	p.order = append(p.order, long)
	if short != "" {
		p.shortMap[short] = long
	}
	if defaultValue != "" {
		p.values[long] = defaultValue
	}
}

// Parse parses command-line arguments
func (p *ParsedOptions) Parse(args []string) error {
	consumed := make([]bool, len(args))
	end := len(args)
	for i, arg := range args {
		if arg == "--" {
			consumed[i] = true
			end = i
			break
		}
	}

	for i := 0; i < end; i++ {
		if consumed[i] {
			continue
		}
		arg := args[i]

		switch {
		case strings.HasPrefix(arg, "--"):
			consumed[i] = true
			if err := p.parseLongOption(arg); err != nil {
				return err
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			consumed[i] = true
			if err := p.parseShortOptions(arg, args[:end], i, consumed); err != nil {
				return err
			}
		}
	}

	p.args = p.args[:0]
	for i := 0; i < len(args); i++ {
		if !consumed[i] {
			p.args = append(p.args, args[i])
		}
	}
	return nil
}

// parseLongOption parses a long option (--option or --option=value)
func (p *ParsedOptions) parseLongOption(arg string) error {
	optName := strings.TrimPrefix(arg, "--")
	optValue, hasValue := "", false
	if equalPos := strings.Index(optName, "="); equalPos != -1 {
		optName, optValue, hasValue = optName[:equalPos], optName[equalPos+1:], true
	}

	def, exists := p.defs[optName]
	if !exists {
		return fmt.Errorf("unknown option: --%s", optName)
	}

	switch def.Type {
	case OptionTypeBool:
		switch {
		case !hasValue, optValue == "true", optValue == "1":
			p.set(optName, "true")
		case optValue == "false", optValue == "0":
			p.set(optName, "false")
		default:
			return fmt.Errorf("invalid boolean value for --%s: %s", optName, optValue)
		}
	case OptionTypeString, OptionTypeInt:
		if !hasValue || optValue == "" {
			return fmt.Errorf("option --%s requires a value (use --%s=value)", optName, optName)
		}
		if def.Type == OptionTypeInt {
			if _, err := strconv.Atoi(optValue); err != nil {
				return fmt.Errorf("invalid integer value for --%s: %s", optName, optValue)
			}
		}
		p.set(optName, optValue)
	}
	return nil
}

// parseShortOptions parses short option(s) (-o or -abc)
func (p *ParsedOptions) parseShortOptions(arg string, args []string, idx int, consumed []bool) error {
	shortOpts := strings.TrimPrefix(arg, "-")

	// count occurrences first, in order of first appearance
	var seen []string
	optCounts := make(map[string]int)
	for _, r := range shortOpts {
		short := string(r)
		if _, exists := p.shortMap[short]; !exists {
			return fmt.Errorf("unknown option: -%s", short)
		}
		if optCounts[short] == 0 {
			seen = append(seen, short)
		}
		optCounts[short]++
	}

	for _, short := range seen {
		count := optCounts[short]
		longOpt := p.shortMap[short]

		switch p.defs[longOpt].Type {
		case OptionTypeBool:
			p.set(longOpt, "true")

		case OptionTypeInt:
			if count > 1 {
				p.set(longOpt, strconv.Itoa(count))
			} else if nextArg := findNextArg(args, idx, consumed, true); nextArg != "" {
				p.set(longOpt, nextArg)
			} else if p.explicitlySet[longOpt] {
				// separate repetitions, -v -v
				p.set(longOpt, strconv.Itoa(p.GetInt(longOpt)+1))
			} else {
				p.set(longOpt, "1")
			}

		case OptionTypeString:
			nextArg := findNextArg(args, idx, consumed, false)
			if nextArg == "" {
				return fmt.Errorf("option -%s requires a value", short)
			}
			p.set(longOpt, nextArg)
		}
	}
	return nil
}

func (p *ParsedOptions) set(option, value string) {
	p.values[option] = value
	p.explicitlySet[option] = true
}

// findNextArg finds the next free argument after startIdx and marks it
// consumed. With intOnly set only an integer directly following the option
// qualifies, so -v does not swallow the value of a later option.
func findNextArg(args []string, startIdx int, consumed []bool, intOnly bool) string {
	for i := startIdx + 1; i < len(args); i++ {
		if consumed[i] || strings.HasPrefix(args[i], "-") {
			if intOnly {
				return ""
			}
			continue
		}
		if intOnly {
			if _, err := strconv.Atoi(args[i]); err != nil {
				return ""
			}
		}
		consumed[i] = true
		return args[i]
	}
	return ""
}

// GetString returns a string option value
func (p *ParsedOptions) GetString(option string) string {
	return p.values[option]
}

// GetInt returns an integer option value
func (p *ParsedOptions) GetInt(option string) int {
	if val, exists := p.values[option]; exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return 0
}

// GetBool returns a boolean option value
func (p *ParsedOptions) GetBool(option string) bool {
	return p.values[option] == "true"
}

// IsSet returns true if an option was explicitly set
func (p *ParsedOptions) IsSet(option string) bool {
	return p.explicitlySet[option]
}

// GetArgs returns non-option arguments
func (p *ParsedOptions) GetArgs() []string {
	return p.args
}

// ShowUsage writes the usage line and the options in definition order
func (p *ParsedOptions) ShowUsage(w io.Writer, usage string) {
	fmt.Fprintf(w, "Usage: %s\n\nOptions:\n", usage)

	for _, long := range p.order {
		def := p.defs[long]
		var shortOpt string
		if def.Short != "" {
			shortOpt = fmt.Sprintf("-%s, ", def.Short)
		}

		var valueDesc string
		switch def.Type {
		case OptionTypeString:
			valueDesc = "=VALUE"
		case OptionTypeInt:
			valueDesc = "=N"
		}

		fmt.Fprintf(w, "  %s--%s%s\n", shortOpt, def.Long, valueDesc)
		if def.Default != "" {
			fmt.Fprintf(w, "        %s (default: %s)\n", def.Description, def.Default)
		} else {
			fmt.Fprintf(w, "        %s\n", def.Description)
		}
	}
}
