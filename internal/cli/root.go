package cli

import (
    "context"
    "fmt"

    "github.com/spf13/cobra"
)

// Execute runs the swagger2regurgitator CLI; cancelling ctx stops a running generate.
func Execute(ctx context.Context) error {
    return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:           "swagger2regurgitator",
        Short:         "Compile Swagger/OpenAPI documents into regurgitator mock configuration",
        Long:          "swagger2regurgitator turns an OpenAPI v3 (or Swagger 2.0) document into regurgitator routing configuration, example payload files and an optional Postman collection.",
        SilenceErrors: true,
        SilenceUsage:  true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    // Convert Cobra flag errors (like unknown flags) into friendly usage errors
    // that also show the command's help text.
    cmd.SetFlagErrorFunc(flagError)

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
    cmd.PersistentFlags().String("log-format", "", "Log output format (text|json); defaults to text")

    g := newGenerateCmd()
    g.SetFlagErrorFunc(flagError)
    cmd.AddCommand(g)

    i := newInitCmd()
    i.SetFlagErrorFunc(flagError)
    cmd.AddCommand(i)

    return cmd
}

func flagError(c *cobra.Command, err error) error {
    return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
