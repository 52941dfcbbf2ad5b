package retdec

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

const decompilationsPath = "/decompiler/decompilations"

// Decompiler is the main entrypoint: it starts decompilations on the
// service.
type Decompiler struct {
	Config Config
	conn   *Connection
}

// DecompilationArgs describes a decompilation to start.
type DecompilationArgs struct {
	InputFile FileUpload

	// Mode is ModeC or ModeBin. When empty it is inferred from the input
	// file name.
	Mode string

	// Params holds further decompilation options, such as target_language.
	Params map[string]string
}

// NewDecompiler constructs a Decompiler using parameters or environment
// fallbacks.
func NewDecompiler(apiKey, apiURL string) (*Decompiler, error) {
	cfg, err := LoadConfig(apiKey, apiURL)
	if err != nil {
		return nil, err
	}
	return NewDecompilerWithConfig(cfg)
}

// NewDecompilerWithParams constructs a Decompiler from structured
// configuration parameters.
func NewDecompilerWithParams(params ConfigParams) (*Decompiler, error) {
	cfg, err := LoadConfigWithParams(params)
	if err != nil {
		return nil, err
	}
	return NewDecompilerWithConfig(cfg)
}

// NewDecompilerWithConfig builds a Decompiler from a fully parsed Config.
func NewDecompilerWithConfig(cfg Config) (*Decompiler, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")

	return &Decompiler{
		Config: cfg,
		conn:   newConnection(cfg, cfg.APIURL+decompilationsPath),
	}, nil
}

// APIURL returns the base URL of the API.
func (d *Decompiler) APIURL() string {
	return d.Config.APIURL
}

// Close releases HTTP resources.
func (d *Decompiler) Close() {
	if d == nil || d.conn == nil {
		return
	}
	d.conn.close()
}

func (d *Decompiler) String() string {
	return fmt.Sprintf("Decompiler(api_url=%s)", d.Config.APIURL)
}

// RunDecompilation uploads the input file and starts a decompilation.
func (d *Decompiler) RunDecompilation(args DecompilationArgs) (*Decompilation, error) {
	return d.RunDecompilationWithContext(context.Background(), args)
}

// RunDecompilationWithContext starts a decompilation with a caller-supplied
// context. Invalid arguments are rejected before anything is sent.
func (d *Decompiler) RunDecompilationWithContext(ctx context.Context, args DecompilationArgs) (*Decompilation, error) {
	mode := args.Mode
	if mode == "" {
		mode = inferMode(args.InputFile.filename())
	}
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	if err := args.InputFile.validate(); err != nil {
		return nil, err
	}

	params := make(map[string]string, len(args.Params)+1)
	for k, v := range args.Params {
		params[k] = v
	}
	params["mode"] = mode

	var resp struct {
		ID string `json:"id"`
	}
	files := map[string]FileUpload{"input": args.InputFile}
	if err := d.conn.SendPostRequestWithContext(ctx, "", params, files, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("start decompilation: response carried no id")
	}
	return d.Decompilation(resp.ID), nil
}

// Decompilation returns a handle to an already started decompilation.
func (d *Decompiler) Decompilation(id string) *Decompilation {
	return newDecompilation(id, d.conn, d.Config.WaitInterval, d.debugLogger())
}

func (d *Decompiler) debugLogger() Logger {
	if !d.Config.Debug {
		return nil
	}
	if d.Config.Logger != nil {
		return d.Config.Logger
	}
	return log.New(os.Stdout, "retdec ", log.LstdFlags)
}
