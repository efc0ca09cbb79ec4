package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"speakwell/internal/models"
	"speakwell/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run speakctl login first")

func (a *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
}

func printSession(w io.Writer, sess *session.Session) {
	fmt.Fprintf(w, "%s <%s>\n", sess.Name, sess.Email)
	fmt.Fprintf(w, "role:    %s\n", sess.Role)
	fmt.Fprintf(w, "level:   %d (%s)\n", sess.Level, models.LevelName(sess.Level))
	fmt.Fprintf(w, "expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
}

func (a *cli) loginCmd() *cobra.Command {
	var creds session.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			sess, err := a.store(a.client()).SignIn(ctx, creds)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *cli) registerCmd() *cobra.Command {
	var reg session.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			sess, err := a.store(a.client()).SignUp(ctx, reg)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "account password, at least 8 characters")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored session and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.store(a.client()).SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account as the server sees it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			local := a.store(c).Current()
			if local == nil {
				return errNotSignedIn
			}
			sess, err := c.Me(ctx, local.Token)
			if err != nil {
				return err
			}
			if sess == nil {
				return errors.New("session is no longer valid; run speakctl login")
			}
			sess.ExpiresAt = local.ExpiresAt
			printSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func (a *cli) lessonsCmd() *cobra.Command {
	var filter models.LessonFilter
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List the lessons unlocked for the signed-in learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			sess := a.store(c).Current()
			if sess == nil {
				return errNotSignedIn
			}
			page, err := c.Lessons(ctx, sess.Token, filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUNIT\tCHAPTER\tLEVEL\tTITLE")
			for _, lesson := range page.Lessons {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", lesson.ID, lesson.Unit, lesson.Chapter, models.LevelName(lesson.Level), lesson.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			chapters := lo.Map(page.Chapters, func(ch int, _ int) string { return fmt.Sprint(ch) })
			fmt.Fprintf(cmd.OutOrStdout(), "chapters: %s\n", strings.Join(chapters, ", "))
			return nil
		},
	}
	cmd.Flags().IntVar(&filter.Unit, "unit", 0, "only lessons in this unit")
	cmd.Flags().IntVar(&filter.Chapter, "chapter", 0, "only lessons in this chapter")
	cmd.Flags().IntVar(&filter.MaxLevel, "level", 0, "only lessons up to this level")
	return cmd
}

func (a *cli) unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the units unlocked at the learner's level",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			sess := a.store(c).Current()
			if sess == nil {
				return errNotSignedIn
			}
			units, err := c.Units(ctx, sess.Token)
			if err != nil {
				return err
			}
			for _, unit := range units {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s (from %s)\n", unit.Key, unit.Title, models.LevelName(unit.MinLevel))
			}
			return nil
		},
	}
}
