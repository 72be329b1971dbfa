package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"wishlist-go/internal/app"
	"wishlist-go/internal/model"

	"github.com/spf13/cobra"
)

// category command
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListCategories", "", func(ctx context.Context, a *app.WLApp) error {
			w := a.Wishlist()
			stats := w.Stats()
			selected := w.SelectedCategory()

			for _, c := range w.Categories() {
				mark := " "
				if selected != nil && selected.ID == c.ID {
					mark = "*"
				}
				st := stats.ByCategory[c.ID]
				fmt.Printf("%s %-36s  %s %-20s  %3d item(s)  %s\n",
					mark, c.ID, c.Emoji, c.Name, st.Items, formatPrice(st.Total, w.Currency()))
			}
			return nil
		})
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME [EMOJI]",
	Short: "Add a category",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		emoji := ""
		if len(args) > 1 {
			emoji = args[1]
		}
		return withApp(cmd, "AddCategory", args[0], func(ctx context.Context, a *app.WLApp) error {
			c, err := a.Wishlist().AddCategory(ctx, args[0], emoji)
			if err != nil {
				return err
			}
			fmt.Printf("Added category %s (%s)\n", c.Name, c.ID)
			return nil
		})
	},
}

var categoryEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Rename a category or change its emoji",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch model.CategoryPatch
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("emoji") {
			emoji, _ := cmd.Flags().GetString("emoji")
			patch.Emoji = &emoji
		}
		return withApp(cmd, "UpdateCategory", args[0], func(ctx context.Context, a *app.WLApp) error {
			return a.Wishlist().UpdateCategory(ctx, args[0], patch)
		})
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a category and every item in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DeleteCategory", args[0], func(ctx context.Context, a *app.WLApp) error {
			n := a.Wishlist().Stats().ByCategory[args[0]].Items
			if err := a.Wishlist().DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted category %s and %d item(s)\n", args[0], n)
			return nil
		})
	},
}

// item command
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage wishlist items",
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in the selected category",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withApp(cmd, "ListItems", "", func(ctx context.Context, a *app.WLApp) error {
			w := a.Wishlist()
			items := w.VisibleItems()
			if all {
				items = w.AllItems()
			}
			if len(items) == 0 {
				fmt.Println("No items.")
				return nil
			}

			names := make(map[string]string)
			for _, c := range w.Categories() {
				names[c.ID] = c.Emoji + " " + c.Name
			}
			for _, it := range items {
				price := ""
				if it.Price != nil {
					price = formatPrice(*it.Price, w.Currency())
				}
				image := ""
				if it.HasImage() {
					image = "  [image]"
				}
				fmt.Printf("%3d  %-36s  %-30s  %-12s  %s%s\n",
					it.Order, it.ID, it.Title, price, names[it.CategoryID], image)
			}
			if !all {
				st := w.Stats().Visible
				fmt.Printf("\n%d item(s), total %s\n", st.Items, formatPrice(st.Total, w.Currency()))
			}
			return nil
		})
	},
}

var itemAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := itemPatchFromFlags(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, "AddItem", args[0], func(ctx context.Context, a *app.WLApp) error {
			w := a.Wishlist()
			item := model.NewItem{
				Title:       args[0],
				Description: patch.Description,
				Price:       patch.Price,
				Notes:       patch.Notes,
				ImageBlob:   patch.ImageBlob,
				ImageURL:    patch.ImageURL,
			}
			switch {
			case patch.CategoryID != nil:
				item.CategoryID = *patch.CategoryID
			case w.SelectedCategory() != nil:
				item.CategoryID = w.SelectedCategory().ID
			default:
				return fmt.Errorf("no category selected: pass --category")
			}

			it, err := w.AddItem(ctx, item)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s (%s)\n", it.Title, it.ID)
			return nil
		})
	},
}

var itemEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := itemEditPatch(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, "UpdateItem", args[0], func(ctx context.Context, a *app.WLApp) error {
			return a.Wishlist().UpdateItem(ctx, args[0], patch)
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DeleteItem", args[0], func(ctx context.Context, a *app.WLApp) error {
			return a.Wishlist().DeleteItem(ctx, args[0])
		})
	},
}

var itemMoveCmd = &cobra.Command{
	Use:   "move ID POSITION",
	Short: "Move an item to a 1-based position in the list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[1])
		if err != nil || pos < 1 {
			return fmt.Errorf("position must be a positive number, got %q", args[1])
		}
		return withApp(cmd, "ReorderItems", strings.Join(args, " "), func(ctx context.Context, a *app.WLApp) error {
			ids, err := moveID(a.Wishlist().AllItems(), args[0], pos-1)
			if err != nil {
				return err
			}
			return a.Wishlist().ReorderItems(ctx, ids)
		})
	},
}

// moveID returns the ids of items in order with id moved to index to.
func moveID(items []*model.Item, id string, to int) ([]string, error) {
	ids := make([]string, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		ids = append(ids, it.ID)
	}
	if !found {
		return nil, fmt.Errorf("item %s not found", id)
	}
	to = min(to, len(ids))
	ids = append(ids[:to], append([]string{id}, ids[to:]...)...)
	return ids, nil
}

// itemPatchFromFlags collects the item fields shared by add and edit.
func itemPatchFromFlags(cmd *cobra.Command) (model.ItemPatch, error) {
	var patch model.ItemPatch
	f := cmd.Flags()

	if f.Changed("category") {
		v, _ := f.GetString("category")
		patch.CategoryID = &v
	}
	if f.Changed("description") {
		v, _ := f.GetString("description")
		patch.Description = &v
	}
	if f.Changed("notes") {
		v, _ := f.GetString("notes")
		patch.Notes = &v
	}
	if f.Changed("price") {
		v, _ := f.GetFloat64("price")
		patch.Price = &v
	}
	if f.Changed("image-url") {
		v, _ := f.GetString("image-url")
		patch.ImageURL = &v
	}
	if f.Changed("image") {
		path, _ := f.GetString("image")
		data, err := os.ReadFile(path)
		if err != nil {
			return patch, fmt.Errorf("reading image: %w", err)
		}
		patch.ImageBlob = data
	}
	return patch, nil
}

// itemEditPatch adds the edit-only title and clear flags to the shared fields.
func itemEditPatch(cmd *cobra.Command) (model.ItemPatch, error) {
	patch, err := itemPatchFromFlags(cmd)
	if err != nil {
		return patch, err
	}
	f := cmd.Flags()
	if f.Changed("title") {
		title, _ := f.GetString("title")
		patch.Title = &title
	}
	patch.ClearDescription, _ = f.GetBool("clear-description")
	patch.ClearPrice, _ = f.GetBool("clear-price")
	patch.ClearNotes, _ = f.GetBool("clear-notes")
	patch.ClearImage, _ = f.GetBool("clear-image")
	return patch, nil
}

func addItemFieldFlags(c *cobra.Command) {
	c.Flags().StringP("category", "c", "", "Category id (defaults to the selected category)")
	c.Flags().StringP("description", "d", "", "Description")
	c.Flags().StringP("notes", "n", "", "Notes")
	c.Flags().Float64P("price", "p", 0, "Price")
	c.Flags().String("image-url", "", "Image URL")
	c.Flags().String("image", "", "Image file to embed")
}

func addItemEditFlags(c *cobra.Command) {
	c.Flags().String("title", "", "New title")
	c.Flags().Bool("clear-description", false, "Remove the description")
	c.Flags().Bool("clear-price", false, "Remove the price")
	c.Flags().Bool("clear-notes", false, "Remove the notes")
	c.Flags().Bool("clear-image", false, "Remove the image")
	c.MarkFlagsMutuallyExclusive("description", "clear-description")
	c.MarkFlagsMutuallyExclusive("price", "clear-price")
	c.MarkFlagsMutuallyExclusive("notes", "clear-notes")
	c.MarkFlagsMutuallyExclusive("image", "image-url", "clear-image")
}

// settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change preferences",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "GetSettings", "", func(ctx context.Context, a *app.WLApp) error {
			w := a.Wishlist()
			selected := "(all)"
			if c := w.SelectedCategory(); c != nil {
				selected = c.Emoji + " " + c.Name
			}
			fmt.Printf("theme:    %s\n", w.Theme())
			fmt.Printf("grid:     %s\n", w.GridView())
			fmt.Printf("currency: %s\n", w.Currency())
			fmt.Printf("category: %s\n", selected)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change a preference (theme, grid, currency, category)",
	Long: "Change a preference. Keys: theme (light|dark), grid (list|grid-2|grid-3), " +
		"currency (ISO code), category (category id, or empty for all).",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		return withApp(cmd, "UpdateSettings", key+"="+value, func(ctx context.Context, a *app.WLApp) error {
			w := a.Wishlist()
			var done <-chan error
			switch key {
			case "theme":
				done = w.SetTheme(ctx, model.Theme(value))
			case "grid":
				done = w.SetGridView(ctx, model.GridView(value))
			case "currency":
				done = w.SetCurrency(ctx, value)
			case "category":
				done = w.SetSelectedCategory(ctx, value)
			default:
				return fmt.Errorf("unknown setting %q", key)
			}
			return <-done
		})
	},
}

func formatPrice(v float64, currency string) string {
	return fmt.Sprintf("%.2f %s", v, currency)
}

func init() {
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryEditCmd)
	categoryEditCmd.Flags().String("name", "", "New name")
	categoryEditCmd.Flags().String("emoji", "", "New emoji")
	categoryCmd.AddCommand(categoryDeleteCmd)

	addItemFieldFlags(itemAddCmd)
	itemAddCmd.MarkFlagsMutuallyExclusive("image", "image-url")
	addItemFieldFlags(itemEditCmd)
	addItemEditFlags(itemEditCmd)
	itemListCmd.Flags().BoolP("all", "a", false, "List items of every category")

	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemEditCmd)
	itemCmd.AddCommand(itemDeleteCmd)
	itemCmd.AddCommand(itemMoveCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(settingsCmd)
}
