package cmds

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmodver/kmodver/cmd/kmodver/cmds/helphelpers"
	"github.com/kmodver/kmodver/pkg/config"
	"github.com/kmodver/kmodver/pkg/logflags"
	"github.com/kmodver/kmodver/pkg/modver"
	"github.com/kmodver/kmodver/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// refPath is the reference kernel module supplying symbol CRCs.
	refPath string
	// layoutCRC is a literal CRC to write into the module_layout record.
	layoutCRC string
	// keep is whether to leave the target untouched and write the
	// patched module to a sibling file.
	keep bool
	// outPath overrides where the patched module is written.
	outPath string
	// recordSize and crcSize override the record layout derived from
	// the module's ELF class.
	recordSize int
	crcSize    int

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	// refCache memoizes parsed reference modules across a batch run.
	refCache *modver.RefCache

	conf *config.Config
)

const kmodverLongDesc = `kmodver rewrites the symbol version CRCs embedded in a compiled kernel
module so it can be force-loaded into a kernel it was not built against.

CRCs can come from a reference module built against the running kernel
(--reference), be given literally for the module_layout record
(--module-layout-crc), or both; a literal value is applied last and wins.

kmodver only overwrites CRC fields inside the __versions section. The
file keeps its exact size and layout, so it still passes the loader's
structural checks. Signed modules are not handled; strip the signature
before patching.

Note that a kernel without CONFIG_MODULE_FORCE_LOAD will still refuse
modules whose CRCs cannot be made to match.`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = config.LoadConfig()

	rootCommand = &cobra.Command{
		Use:   "kmodver [flags] <module.ko>",
		Short: "kmodver patches kernel module version CRCs for force loading.",
		Long:  kmodverLongDesc,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(patchModule(args[0]))
		},
	}
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (patch, batch, fileio).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")
	rootCommand.PersistentFlags().StringVarP(&refPath, "reference", "r", "", "Reference kernel module to take symbol CRCs from.")
	rootCommand.PersistentFlags().StringVarP(&layoutCRC, "module-layout-crc", "m", "", "Literal CRC to write into the module_layout record (decimal or 0x hex).")
	rootCommand.PersistentFlags().BoolVarP(&keep, "keep", "k", false, "Keep the target untouched and write the patched module next to it.")
	rootCommand.PersistentFlags().IntVarP(&recordSize, "record-size", "", 0, "Override the __versions record size in bytes.")
	rootCommand.PersistentFlags().IntVarP(&crcSize, "crc-size", "", 0, "Override the CRC field width in bytes.")
	rootCommand.Flags().StringVarP(&outPath, "output", "o", "", "Write the patched module to this path instead of in place.")

	versionsCommand := &cobra.Command{
		Use:   "versions <module.ko>",
		Short: "Prints the symbol version records of a module.",
		Long: `Prints every record of the module's __versions section: file offset
within the section, CRC and symbol name. No patching is performed.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(printVersions(args[0]))
		},
	}
	rootCommand.AddCommand(versionsCommand)

	batchCommand := &cobra.Command{
		Use:   "batch <dir> [dir...]",
		Short: "Patches every .ko file under the given directories.",
		Long: `Walks the given directories and patches every kernel module found,
using the same reference module and/or literal module_layout CRC for
each. Modules that fail to patch are reported and skipped; the walk
continues. Modules without a __versions section are left alone.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(batchPatch(args))
		},
	}
	rootCommand.AddCommand(batchCommand)

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kmodver %s\n", version.KmodverVersion)
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Printf("Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolP("verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	defaultHelp := rootCommand.HelpFunc()
	rootCommand.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helphelpers.Prepare(cmd)
		defaultHelp(cmd, args)
	})

	return rootCommand
}

// parseCRC parses a CRC literal; plain numbers are decimal, 0x prefixes
// hex, matching strconv base 0.
func parseCRC(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CRC %q: %v", s, err)
	}
	return v, nil
}

// buildStrategy assembles the patch strategy from flags and config. The
// reference module, when used, is loaded through rc.
func buildStrategy(rc *modver.RefCache) (modver.Strategy, error) {
	ref := refPath
	if ref == "" {
		ref = conf.DefaultReference
	}

	var chain modver.Chain
	if ref != "" {
		idx, err := rc.Index(ref)
		if err != nil {
			return nil, err
		}
		chain = append(chain, modver.CrossModule{Ref: idx})
	}
	if layoutCRC != "" {
		crc, err := parseCRC(layoutCRC)
		if err != nil {
			return nil, err
		}
		chain = append(chain, modver.LiteralCRC{Symbol: modver.ModuleLayoutSymbol, CRC: crc})
	}

	switch len(chain) {
	case 0:
		return nil, errors.New("nothing to patch: specify --reference and/or --module-layout-crc")
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}

// layoutOpts translates flag and config file overrides into apply
// options. Flags win over the config file.
func layoutOpts() []modver.ApplyOption {
	rs, cs := conf.RecordSize, conf.CRCSize
	if recordSize > 0 {
		rs = recordSize
	}
	if crcSize > 0 {
		cs = crcSize
	}
	if rs == 0 && cs == 0 {
		return nil
	}
	return []modver.ApplyOption{modver.WithRecordSize(rs, cs)}
}

func backupSuffix() string {
	if conf.BackupSuffix != "" {
		return conf.BackupSuffix
	}
	return ".patch"
}

const noVersionsWarning = `__versions section not found in %s.
This may or may not be a problem. If the target kernel was compiled with
CONFIG_MODULE_FORCE_LOAD the module loads without version records; if it
was not, the module cannot be force loaded at all.`

// patchOne reads, patches and writes back a single module. The returned
// result is nil when the module has no __versions section.
func patchOne(target string) (*modver.PatchResult, error) {
	fileLogger := logflags.FileIOLogger()
	patchLogger := logflags.PatchLogger().WithField("module", target)

	fi, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	fileLogger.Debugf("read %s (%d bytes)", target, len(buf))

	if refCache == nil {
		refCache, err = modver.NewRefCache(0)
		if err != nil {
			return nil, err
		}
	}
	strategy, err := buildStrategy(refCache)
	if err != nil {
		return nil, err
	}

	res, err := modver.Apply(buf, strategy, layoutOpts()...)
	if err != nil {
		var nf *modver.SectionNotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	for _, name := range res.ChangedNames {
		patchLogger.Debugf("patched CRC of %q", name)
	}
	for _, name := range res.SkippedNames {
		patchLogger.Warnf("symbol %q not in reference, CRC left as is", name)
	}

	dest := target
	if keep {
		dest = target + backupSuffix()
	}
	if outPath != "" {
		dest = outPath
	}
	if err := os.WriteFile(dest, buf, fi.Mode().Perm()); err != nil {
		return nil, err
	}
	fileLogger.Debugf("wrote %s (%d bytes)", dest, len(buf))
	return res, nil
}

func patchModule(target string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logflags.Close()

	res, err := patchOne(target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res == nil {
		fmt.Printf(noVersionsWarning+"\n", target)
		return 0
	}
	fmt.Printf("%s: %d of %d version records patched", target, res.Changed, res.Examined)
	if len(res.SkippedNames) > 0 {
		fmt.Printf(", %d not present in reference", len(res.SkippedNames))
	}
	fmt.Println()
	return 0
}

func batchPatch(dirs []string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logflags.Close()
	logger := logflags.BatchLogger()

	var patched, skipped, failed int
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".ko") {
				return nil
			}
			res, err := patchOne(path)
			switch {
			case err != nil:
				failed++
				logger.WithError(err).Errorf("failed to patch %s", path)
			case res == nil:
				skipped++
				logger.Infof("%s has no __versions section, skipped", path)
			default:
				patched++
				logger.Infof("%s: %d of %d records patched", path, res.Changed, res.Examined)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	fmt.Printf("%d modules patched, %d without version records, %d failed\n", patched, skipped, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func printVersions(target string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logflags.Close()

	buf, err := os.ReadFile(target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	f, err := modver.Open(buf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts := layoutOpts(); len(opts) > 0 {
		for _, opt := range opts {
			if err := opt(f); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
	}
	table, err := f.Versions()
	if err != nil {
		var nf *modver.SectionNotFoundError
		if errors.As(err, &nf) {
			fmt.Printf(noVersionsWarning+"\n", target)
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	width := 2 * f.Layout().CRCSize
	for _, rec := range table.Records {
		fmt.Printf("%6d  0x%0*x  %s\n", rec.Offset, width, rec.CRC, rec.Name)
	}
	return 0
}
