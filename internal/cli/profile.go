package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"wevolve/internal/common"
	"wevolve/internal/errors"
	"wevolve/internal/normalize"
	"wevolve/internal/types"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Review, correct, save or discard the stored profile",
	Long: `Work with the profile extracted by the last upload.

Fields: name, email, phone, skills, experience, education, projects,
confidenceScores.
Scalar fields take plain text, skills and projects take a comma separated
list, experience and education take a JSON array and confidenceScores a
JSON object.`,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile with its confidence levels",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set [field] [value]",
	Short: "Correct one profile field",
	Long: `Replace one profile field. Use --file to read the value from a file,
which is convenient for the experience and education JSON arrays.`,
	Example: `  wevolve profile set name "Jane Doe"
  wevolve profile set skills "Go, SQL, Kubernetes"
  wevolve profile set experience --file experience.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runProfileSet,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Send the corrected profile to the backend",
	Args:  cobra.NoArgs,
	RunE:  runProfileSave,
}

var profileDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Delete the stored profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileDiscard,
}

var profileSetFlags struct {
	file string
}

func init() {
	profileSetCmd.Flags().StringVarP(&profileSetFlags.file, "file", "f", "", "Read the value from a file")

	_ = profileSetCmd.RegisterFlagCompletionFunc("file", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
	})
	profileSetCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		fields := make([]string, 0, len(types.ProfileFields))
		for _, f := range types.ProfileFields {
			fields = append(fields, string(f))
		}
		return fields, cobra.ShellCompDirectiveNoFileComp
	}

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileDiscardCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	loadInput := func(ctx context.Context) (types.CandidateProfile, error) {
		return a.requireProfile()
	}
	operation := func(ctx context.Context, p types.CandidateProfile) (types.ProfileView, error) {
		return normalize.View(p, ""), nil
	}

	return common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, nil)
}

// fieldEdit is one correction read from the command line
type fieldEdit struct {
	field types.ProfileField
	value any
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	loadInput := func(ctx context.Context) (fieldEdit, error) {
		if _, err := a.requireProfile(); err != nil {
			return fieldEdit{}, err
		}
		field, err := types.ParseProfileField(args[0])
		if err != nil {
			return fieldEdit{}, errors.NewValidationError(errors.ErrCodeUnknownField, err.Error(), err).
				WithContext("field", args[0])
		}
		text, err := editText(a, args)
		if err != nil {
			return fieldEdit{}, err
		}
		value, err := field.ParseText(text)
		if err != nil {
			return fieldEdit{}, errors.NewValidationError(errors.ErrCodeInvalidField, err.Error(), err).
				WithContext("field", string(field))
		}
		return fieldEdit{field: field, value: value}, nil
	}

	logDetails := func(e fieldEdit, cfg common.CommandConfig) {
		a.logger.Info("Updating profile field", "field", e.field)
	}

	operation := func(ctx context.Context, e fieldEdit) (types.ProfileView, error) {
		if err := a.store.UpdateField(e.field, e.value); err != nil {
			return types.ProfileView{}, err
		}
		a.obs.RecordProfileEdit(ctx, string(e.field))
		p, err := a.requireProfile()
		if err != nil {
			return types.ProfileView{}, err
		}
		return normalize.View(p, ""), nil
	}

	return common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, logDetails)
}

// editText takes the value from the positional argument or from --file
func editText(a *app, args []string) (string, error) {
	switch {
	case profileSetFlags.file != "" && len(args) == 2:
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Give the value either as an argument or with --file, not both", nil)
	case profileSetFlags.file != "":
		contents, err := common.NewFileProcessor(a.logger).ValidateAndReadFiles(profileSetFlags.file)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(contents[0]), nil
	case len(args) == 2:
		return args[1], nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Missing value; pass it as the second argument or with --file", nil)
	}
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	loadInput := func(ctx context.Context) (types.CandidateProfile, error) {
		return a.requireProfile()
	}
	logDetails := func(p types.CandidateProfile, cfg common.CommandConfig) {
		a.logger.Info("Saving profile", "name", p.Name, "backend", a.backend.BaseURL())
	}
	operation := func(ctx context.Context, p types.CandidateProfile) (types.SaveProfileResult, error) {
		result, err := a.backend.SaveProfile(ctx, p)
		if err != nil {
			return types.SaveProfileResult{}, err
		}
		return *result, nil
	}

	if err := common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func runProfileDiscard(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.store.HasProfile() {
		fmt.Fprintln(os.Stderr, "No profile stored")
		return nil
	}
	a.store.Reset()
	a.logger.Info("Profile discarded")
	fmt.Fprintln(os.Stderr, "Profile discarded")
	return nil
}
