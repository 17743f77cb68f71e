package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docflow/internal/llm"
)

var (
	preferredModel string
	chatFile       string
	chatDocument   string
)

var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Complete a prompt through the provider failover chain",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.LLM.Complete(cmd.Context(), strings.Join(args, " "), preferredModel)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send a JSON message history (file or stdin) and print the reply",
	Long: `Reads a JSON array of {"role","content"} messages from --file or stdin.
With --document the conversation is grounded in that document's text.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readChatInput(cmd)
		if err != nil {
			return err
		}
		if err := llm.ValidateMessagesJSON(raw); err != nil {
			return err
		}
		var msgs []llm.Message
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var text string
		if chatDocument != "" {
			doc, content, err := a.Processor.DocumentText(cmd.Context(), chatDocument)
			if err != nil {
				return err
			}
			text, err = a.LLM.ChatAboutDocument(cmd.Context(), doc.Title, content, msgs, preferredModel)
			if err != nil {
				return err
			}
		} else if text, err = a.LLM.Chat(cmd.Context(), msgs, preferredModel); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document-id]",
	Short: "Summarize a document's key points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocumentPrompt(cmd, args[0], func(a *llm.Service, text string) (string, error) {
			return a.AnalyzeDocument(cmd.Context(), text, preferredModel)
		})
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions [document-id]",
	Short: "Suggest questions a reader might ask about a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocumentPrompt(cmd, args[0], func(a *llm.Service, text string) (string, error) {
			return a.GenerateQuestions(cmd.Context(), text, preferredModel)
		})
	},
}

func runDocumentPrompt(cmd *cobra.Command, id string, fn func(*llm.Service, string) (string, error)) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, content, err := a.Processor.DocumentText(cmd.Context(), id)
	if err != nil {
		return err
	}
	out, err := fn(a.LLM, content)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func readChatInput(cmd *cobra.Command) ([]byte, error) {
	if chatFile != "" && chatFile != "-" {
		return os.ReadFile(chatFile)
	}
	return io.ReadAll(cmd.InOrStdin())
}

func init() {
	for _, c := range []*cobra.Command{completeCmd, chatCmd, analyzeCmd, questionsCmd} {
		c.Flags().StringVarP(&preferredModel, "model", "m", "", "Preferred provider (gemini, groq, bedrock)")
	}
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "JSON messages file (default stdin)")
	chatCmd.Flags().StringVarP(&chatDocument, "document", "d", "", "Ground the chat in this document")
	rootCmd.AddCommand(completeCmd, chatCmd, analyzeCmd, questionsCmd)
}
