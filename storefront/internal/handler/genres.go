package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/bookstore-client/storefront/internal/form"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func (h *Handler) genresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "genres",
		Aliases: []string{"genre"},
		Short:   "Browse and manage genres",
	}
	cmd.AddCommand(
		h.genresListCmd(),
		h.genreGetCmd(),
		h.genreAddCmd(),
		h.genreRenameCmd(),
		h.genreDeleteCmd(),
	)
	return cmd
}

func (h *Handler) genresListCmd() *cobra.Command {
	var lf listFlags
	schema := model.GenreListSchema
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadList[model.Genre](cmd, h.log, schema, lf.filter(cmd, schema), h.genreSvc.List)
			if err != nil {
				return fail(err, "", "Failed to fetch genres")
			}
			w := cmd.OutOrStdout()
			if v.Empty() {
				fmt.Fprintln(w, "No genres found")
				return nil
			}
			printGenres(w, v.Items)
			printFooter(w, v.Meta, "genres")
			return nil
		},
	}
	lf.bind(cmd, schema)
	return cmd
}

func (h *Handler) genreGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := h.genreSvc.Get(cmd.Context(), args[0])
			if err != nil {
				return fail(err, "Genre not found", "Failed to fetch genre")
			}
			printGenres(cmd.OutOrStdout(), []model.Genre{g})
			return nil
		},
	}
}

func (h *Handler) genreAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a genre",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := form.NewGenreForm()
			f.Name = strings.Join(args, " ")
			g, err := f.Submit(cmd.Context(), h.genreSvc)
			if err != nil {
				return fail(err, "", "Failed to save genre")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Genre added: %s %s\n", g.ID, g.Name)
			return nil
		},
	}
}

func (h *Handler) genreRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a genre",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := form.EditGenreForm(model.Genre{ID: args[0]})
			f.Name = strings.Join(args[1:], " ")
			g, err := f.Submit(cmd.Context(), h.genreSvc)
			if err != nil {
				return fail(err, "Genre not found", "Failed to save genre")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Genre renamed: %s %s\n", g.ID, g.Name)
			return nil
		},
	}
}

func (h *Handler) genreDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, yes, "Are you sure you want to delete this genre?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err := h.genreSvc.Delete(cmd.Context(), args[0]); err != nil {
				return fail(err, "Genre not found", "Failed to delete genre")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Genre deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func printGenres(w io.Writer, genres []model.Genre) {
	fmt.Fprintf(w, "%-36s %s\n", "ID", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, g := range genres {
		fmt.Fprintf(w, "%-36s %s\n", g.ID, g.Name)
	}
}
