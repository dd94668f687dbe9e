package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/client"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/config"
)

var chatOpts struct {
	apiURL   string
	email    string
	password string
	user     string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the tutor from the terminal through a running server",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatOpts.apiURL, "api", "", "backend base URL (default API_BASE_URL)")
	chatCmd.Flags().StringVar(&chatOpts.email, "email", "", "login email (default DEMO_EMAIL)")
	chatCmd.Flags().StringVar(&chatOpts.password, "password", "", "login password (default DEMO_PASSWORD)")
	chatCmd.Flags().StringVar(&chatOpts.user, "user", "", "user identifier for mistakes and study plans")
}

const chatHelp = `Commands:
  /courses              list courses
  /course <id>          switch course (clears the conversation)
  /files                list uploaded files
  /upload <path>...     upload files
  /docs [name...]       select documents for AI requests (no names clears)
  /guide [topic]        generate a study guide
  /exam [topic]         generate a practice exam
  /review               weekly review
  /mistakes             list recorded mistakes for this course
  /plan [text|json]     show or save the study plan
  /quit                 exit`

func runChat(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadUnchecked()
	baseURL := firstSet(chatOpts.apiURL, cfg.APIBaseURL)
	c := client.New(baseURL, chatOpts.user)
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if _, err := c.API.Health(ctx); err != nil {
		return fmt.Errorf("backend at %s is not reachable: %w", baseURL, err)
	}
	session, err := c.Gate.Login(ctx, firstSet(chatOpts.email, cfg.DemoEmail), firstSet(chatOpts.password, cfg.DemoPassword))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(out, "Logged in as %s. Type /help for commands.\n\n", session.Email())
	printLast(out, c.Conversation.Messages())

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if _, err := c.Gate.RequireSession(); err != nil {
			return err
		}
		if !strings.HasPrefix(line, "/") {
			if c.Conversation.Send(ctx, line) {
				printLast(out, c.Conversation.Messages())
			}
			continue
		}

		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "/quit", "/exit":
			c.Gate.Logout()
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/courses":
			current := c.Conversation.Course().ID
			for _, course := range c.Courses.All() {
				marker := " "
				if course.ID == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-8s %-10s %s\n", marker, course.ID, course.Code, course.Name)
			}
		case "/course":
			if err := c.Conversation.SelectCourse(arg); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			printLast(out, c.Conversation.Messages())
		case "/files":
			list, err := c.Files.List(ctx)
			if err != nil {
				fmt.Fprintln(out, "Failed to load files:", err)
				continue
			}
			for _, f := range list {
				fmt.Fprintf(out, "%-48s %8d  %s\n", f.Filename, f.Size, f.Type)
			}
		case "/upload":
			for _, r := range c.Files.UploadAll(ctx, strings.Fields(arg)) {
				if r.Err != nil {
					fmt.Fprintf(out, "%s: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Fprintf(out, "%s -> %s (%s)\n", r.Path, r.File.Filename, r.File.Type)
			}
		case "/docs":
			c.Documents.Set(strings.Fields(arg))
			fmt.Fprintf(out, "Selected documents: %v\n", c.Documents.Filenames())
		case "/guide":
			c.Generation.StudyGuide.Submit(ctx, c.GenerateParams(arg))
			fmt.Fprintln(out, c.Generation.StudyGuide.Result())
		case "/exam":
			c.Generation.PracticeExam.Submit(ctx, c.GenerateParams(arg))
			fmt.Fprintln(out, c.Generation.PracticeExam.Result())
		case "/review":
			review, err := c.Learning.WeeklyReview(ctx, c.Conversation.Course().Name)
			if err != nil {
				fmt.Fprintln(out, client.GenerationFailed)
				continue
			}
			fmt.Fprintln(out, review.Render())
		case "/mistakes":
			list, err := c.Learning.ListMistakes(ctx, c.Conversation.Course().Name)
			if err != nil {
				fmt.Fprintln(out, "Failed to load mistakes:", err)
				continue
			}
			for _, m := range list {
				fmt.Fprintf(out, "#%d [%s] %s\n", m.ID, m.Topic, m.Question)
			}
		case "/plan":
			runPlan(cmd, c, out, arg)
		default:
			fmt.Fprintln(out, "Unknown command. Type /help.")
		}
	}
}

func runPlan(cmd *cobra.Command, c *client.Client, out io.Writer, arg string) {
	if arg == "" {
		plan, err := c.Learning.GetStudyPlan(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintln(out, "Failed to load study plan:", err)
		case plan == nil:
			fmt.Fprintln(out, "No study plan saved yet.")
		default:
			fmt.Fprintln(out, plan.EditorText())
		}
		return
	}
	if err := c.Learning.SaveStudyPlan(cmd.Context(), client.StudyPlanFromEditor(arg)); err != nil {
		fmt.Fprintln(out, "Failed to save study plan:", err)
		return
	}
	fmt.Fprintln(out, "Study plan saved.")
}

func printLast(out io.Writer, msgs []client.Message) {
	if len(msgs) == 0 {
		return
	}
	m := msgs[len(msgs)-1]
	fmt.Fprintf(out, "[%s] %s\n\n", m.Sender, m.Text)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
