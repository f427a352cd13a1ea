// Command holo-persist-cli is a small operator tool over a persist.Manager:
// put/get raw CAS content, add/query EAV facts against the demo attribute
// universe, and print backend usage stats. Configuration is loaded from a
// YAML file into a persist.Config-shaped struct, the same way the teacher
// codebase's spec-test harnesses load their fixtures with ghodss/yaml.
package main

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/metrics"
	"github.com/holochain/holo-persist/persist"
	"github.com/holochain/holo-persist/storage/boltstore"
)

var log = logrus.WithField("prefix", "holo-persist-cli")

// fileConfig is the on-disk, YAML-friendly shape of a persist.Config for
// the demo attribute universe. persist.Config itself isn't serializable as
// written (ParseFunc isn't data), so the CLI maps this onto one explicitly.
type fileConfig struct {
	PrimaryPath           string  `json:"primaryPath"`
	PrimaryInitialMapSize uint64  `json:"primaryInitialMapSize"`
	GrowthFactor          float64 `json:"growthFactor"`
	StagingMode           string  `json:"stagingMode"` // "memory" or "disk"
	StagingPrefix         string  `json:"stagingPrefix"`
	StagingInitialMapSize uint64  `json:"stagingInitialMapSize"`
	Metrics               bool    `json:"metrics"`
}

func loadConfig(path string) (fileConfig, error) {
	var fc fileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("parsing config file: %w", err)
	}
	if fc.PrimaryInitialMapSize == 0 {
		fc.PrimaryInitialMapSize = 1 << 20
	}
	if fc.StagingInitialMapSize == 0 {
		fc.StagingInitialMapSize = 1 << 20
	}
	return fc, nil
}

func openManager(cCtx *cli.Context) (*persist.Manager[eav.DemoAttribute], error) {
	fc, err := loadConfig(cCtx.String("config"))
	if err != nil {
		return nil, err
	}

	cfg := persist.Config[eav.DemoAttribute]{
		PrimaryPath:           fc.PrimaryPath,
		PrimaryInitialMapSize: fc.PrimaryInitialMapSize,
		GrowthFactor:          fc.GrowthFactor,
		StagingInitialMapSize: fc.StagingInitialMapSize,
		StagingPrefix:         fc.StagingPrefix,
		PrimaryFlags:          boltstore.FlagNone,
		Parse:                 eav.ParseDemoAttribute,
	}
	if fc.StagingMode == "disk" {
		cfg.StagingMode = persist.StagingOnDisk
	}
	if fc.Metrics {
		cfg.Metrics = metrics.NewRecorder()
	}

	return persist.NewManager(cfg)
}

func main() {
	app := &cli.App{
		Name:  "holo-persist-cli",
		Usage: "operate a CAS/EAV persistence store from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "path to a YAML persist.Config file",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			putCommand,
			getCommand,
			eavAddCommand,
			eavQueryCommand,
			statsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("holo-persist-cli failed")
	}
}

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "write raw content to the primary CAS",
	ArgsUsage: "<content>",
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() != 1 {
			return cli.Exit("put requires exactly one <content> argument", 1)
		}
		m, err := openManager(cCtx)
		if err != nil {
			return err
		}
		defer closeManager(m)

		content := []byte(cCtx.Args().Get(0))
		if err := m.Cas().Add(content); err != nil {
			return err
		}
		addr, err := address.Compute(content, address.SHA256)
		if err != nil {
			return err
		}
		fmt.Println(addr.String())
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "fetch content from the primary CAS by address",
	ArgsUsage: "<address>",
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() != 1 {
			return cli.Exit("get requires exactly one <address> argument", 1)
		}
		m, err := openManager(cCtx)
		if err != nil {
			return err
		}
		defer closeManager(m)

		addr, err := parseCIDArg(cCtx.Args().Get(0))
		if err != nil {
			return err
		}
		content, ok, err := m.Cas().Fetch(addr)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit("address not found", 1)
		}
		os.Stdout.Write(content)
		fmt.Println()
		return nil
	},
}

var eavAddCommand = &cli.Command{
	Name:      "eav-add",
	Usage:     "assert an EAV fact (entity/value given as raw content, hashed to addresses)",
	ArgsUsage: "<entity content> <attribute string> <value content>",
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() != 3 {
			return cli.Exit("eav-add requires <entity> <attribute> <value>", 1)
		}
		m, err := openManager(cCtx)
		if err != nil {
			return err
		}
		defer closeManager(m)

		entity, err := address.Compute([]byte(cCtx.Args().Get(0)), address.SHA256)
		if err != nil {
			return err
		}
		attr, err := eav.ParseDemoAttribute(cCtx.Args().Get(1))
		if err != nil {
			return err
		}
		value, err := address.Compute([]byte(cCtx.Args().Get(2)), address.SHA256)
		if err != nil {
			return err
		}

		record := eav.New(entity, attr, value, m.Clock())
		if _, err := m.Eav().AddEAVI(record); err != nil {
			return err
		}
		fmt.Printf("added at index %d\n", record.Index)
		return nil
	},
}

var eavQueryCommand = &cli.Command{
	Name:  "eav-query",
	Usage: "query EAV facts by optional entity/attribute/value content and print the matching set",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "entity"},
		&cli.StringFlag{Name: "attribute"},
		&cli.StringFlag{Name: "value"},
		&cli.BoolFlag{Name: "latest", Usage: "apply the LatestByAttribute index filter"},
	},
	Action: func(cCtx *cli.Context) error {
		m, err := openManager(cCtx)
		if err != nil {
			return err
		}
		defer closeManager(m)

		var query eav.Query[eav.DemoAttribute]
		if s := cCtx.String("entity"); s != "" {
			a, err := address.Compute([]byte(s), address.SHA256)
			if err != nil {
				return err
			}
			query.Entity = &a
		}
		if s := cCtx.String("attribute"); s != "" {
			a, err := eav.ParseDemoAttribute(s)
			if err != nil {
				return err
			}
			query.Attribute = &a
		}
		if s := cCtx.String("value"); s != "" {
			a, err := address.Compute([]byte(s), address.SHA256)
			if err != nil {
				return err
			}
			query.Value = &a
		}
		if cCtx.Bool("latest") {
			query.Index = eav.LatestByAttribute()
		}

		records, err := m.Eav().FetchEAVI(query)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s %s %s @%d\n", r.Entity, r.Attribute, r.Value, r.Index)
		}
		return nil
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "print primary CAS/EAV backend usage",
	Action: func(cCtx *cli.Context) error {
		m, err := openManager(cCtx)
		if err != nil {
			return err
		}
		defer closeManager(m)

		casReport, err := m.Cas().Report()
		if err != nil {
			return err
		}
		eavReport, err := m.Eav().Report()
		if err != nil {
			return err
		}
		fmt.Printf("cas:  used=%d capacity=%d\n", casReport.UsedBytes, casReport.CapacityBytes)
		fmt.Printf("eav:  used=%d capacity=%d\n", eavReport.UsedBytes, eavReport.CapacityBytes)
		return nil
	},
}

func parseCIDArg(s string) (address.Address, error) {
	// The CLI's put command prints address.String()'s CID form; accept that
	// form back by round-tripping through the same multihash the address
	// wraps. Operators who only have the raw hex form can use Address.Hex
	// instead, which this parses as a fallback.
	if a, err := address.FromCIDString(s); err == nil {
		return a, nil
	}
	return address.FromHex(s)
}

func closeManager(m *persist.Manager[eav.DemoAttribute]) {
	if err := m.Close(); err != nil {
		log.WithError(err).Warn("error closing manager")
	}
}
