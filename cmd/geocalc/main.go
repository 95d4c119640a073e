package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/meshgeo/internal/geo"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
}

type pointArgs struct {
	From string `positional-arg-name:"FROM" description:"lat,lon" required:"yes"`
	To   string `positional-arg-name:"TO" description:"lat,lon" required:"yes"`
}

type DistanceCommand struct {
	Units    string    `short:"u" long:"units" description:"Units for distance_text" choice:"metric" choice:"imperial" default:"metric"`
	LegacyPi bool      `long:"legacy-pi" description:"Use the legacy pi constant"`
	Args     pointArgs `positional-args:"yes" required:"yes"`

	opts *Options
	out  io.Writer
}

type BearingCommand struct {
	Args pointArgs `positional-args:"yes" required:"yes"`

	opts *Options
	out  io.Writer
}

type DMSCommand struct {
	Lon  bool `short:"l" long:"lon" description:"Value is a longitude"`
	Args struct {
		Value float64 `positional-arg-name:"VALUE" description:"Signed decimal degrees" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	opts *Options
	out  io.Writer
}

type ParseCommand struct {
	Lon  bool `short:"l" long:"lon" description:"Value is a longitude"`
	Args struct {
		Value string `positional-arg-name:"VALUE" description:"Coordinate such as 37°46'29.64\"N" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	opts *Options
	out  io.Writer
}

type ProjectCommand struct {
	Args struct {
		From     string  `positional-arg-name:"FROM" description:"lat,lon" required:"yes"`
		Distance float64 `positional-arg-name:"DISTANCE" description:"Meters" required:"yes"`
		Bearing  float64 `positional-arg-name:"BEARING" description:"Degrees clockwise from north" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	opts *Options
	out  io.Writer
}

type distanceResult struct {
	From         geo.Point `json:"from" yaml:"from"`
	To           geo.Point `json:"to" yaml:"to"`
	Distance     float64   `json:"distance" yaml:"distance"`
	DistanceText string    `json:"distance_text" yaml:"distance_text"`
	Bearing      float64   `json:"bearing" yaml:"bearing"`
	Compass      string    `json:"compass" yaml:"compass"`
}

type bearingResult struct {
	Bearing float64 `json:"bearing" yaml:"bearing"`
	Radians float64 `json:"radians" yaml:"radians"`
	Compass string  `json:"compass" yaml:"compass"`
}

type dmsResult struct {
	DMS geo.DMS `json:"dms" yaml:"dms"`
	DM  geo.DM  `json:"dm" yaml:"dm"`
	D   geo.DD  `json:"d" yaml:"d"`
}

type parseResult struct {
	Decimal float64 `json:"decimal" yaml:"decimal"`
	DMS     string  `json:"dms" yaml:"dms"`
	DM      string  `json:"dm" yaml:"dm"`
}

type projectResult struct {
	Planar    geo.Point `json:"planar" yaml:"planar"`
	Spherical geo.Point `json:"spherical" yaml:"spherical"`
}

func (c *DistanceCommand) Execute([]string) error {
	from, to, err := c.Args.points()
	if err != nil {
		return err
	}

	d := geo.Distance(from, to)
	if c.LegacyPi {
		d = geo.DistanceLegacy(from, to)
	}
	b := geo.Bearing(from, to)

	return emit(c.out, c.opts.Format, distanceResult{
		From:         from,
		To:           to,
		Distance:     d,
		DistanceText: geo.FormatDistance(d, geo.Units(c.Units)),
		Bearing:      b,
		Compass:      geo.Compass(b),
	})
}

func (c *BearingCommand) Execute([]string) error {
	from, to, err := c.Args.points()
	if err != nil {
		return err
	}

	b := geo.Bearing(from, to)
	return emit(c.out, c.opts.Format, bearingResult{
		Bearing: b,
		Radians: geo.BearingToRadians(b),
		Compass: geo.Compass(b),
	})
}

func (c *DMSCommand) Execute([]string) error {
	v := c.Args.Value
	return emit(c.out, c.opts.Format, dmsResult{
		DMS: geo.ToDMS(v, !c.Lon),
		DM:  geo.ToDM(v, !c.Lon),
		D:   geo.ToD(v, !c.Lon),
	})
}

func (c *ParseCommand) Execute([]string) error {
	v, err := geo.ParseCoordinate(c.Args.Value, !c.Lon)
	if err != nil {
		return err
	}

	return emit(c.out, c.opts.Format, parseResult{
		Decimal: v,
		DMS:     geo.ToDMS(v, !c.Lon).String(),
		DM:      geo.ToDM(v, !c.Lon).String(),
	})
}

func (c *ProjectCommand) Execute([]string) error {
	from, err := geo.ParsePoint(c.Args.From)
	if err != nil {
		return err
	}
	if c.Args.Distance < 0 {
		return fmt.Errorf("distance must not be negative")
	}

	return emit(c.out, c.opts.Format, projectResult{
		Planar:    geo.DestinationPoint(from, c.Args.Distance, geo.BearingToRadians(c.Args.Bearing)),
		Spherical: geo.Destination(from, c.Args.Distance, c.Args.Bearing),
	})
}

func (a pointArgs) points() (geo.Point, geo.Point, error) {
	from, err := geo.ParsePoint(a.From)
	if err != nil {
		return geo.Point{}, geo.Point{}, err
	}
	to, err := geo.ParsePoint(a.To)
	if err != nil {
		return geo.Point{}, geo.Point{}, err
	}
	return from, to, nil
}

// emit writes v to w as indented JSON or YAML.
func emit(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if format == "yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = w.Write(data)
	return err
}

func newParser(out io.Writer, options flags.Options) *flags.Parser {
	opts := &Options{}
	parser := flags.NewParser(opts, options)
	parser.LongDescription = "Negative coordinates must follow \"--\", e.g. geocalc distance -- -33.9,18.4 51.5,-0.1"

	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"distance", "Great-circle distance and bearing between two points", &DistanceCommand{opts: opts, out: out}},
		{"bearing", "Initial bearing from one point to another", &BearingCommand{opts: opts, out: out}},
		{"dms", "Split decimal degrees into DMS, DM and D forms", &DMSCommand{opts: opts, out: out}},
		{"parse", "Read a typed coordinate into decimal degrees", &ParseCommand{opts: opts, out: out}},
		{"project", "Point reached from FROM after DISTANCE meters on BEARING", &ProjectCommand{opts: opts, out: out}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.short, c.data); err != nil {
			panic(err)
		}
	}

	return parser
}

func main() {
	parser := newParser(os.Stdout, flags.Default|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
