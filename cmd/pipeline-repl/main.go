// Command pipeline-repl is an interactive read-tokenize-parse loop for
// exploring the pipeline language. It does not compile; it only echoes
// what the lexer and parser see, which is useful for checking a snippet's
// grammar or hunting down a diagnostic's span.
//
// Input lines are collected until every "{" entered so far has a matching
// "}"; the collected text is then treated as one complete pipeline
// declaration, so a declaration may span several lines. End the session
// with Ctrl-D.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/gogpu/pipeline/internal/diagnostic"
	"github.com/gogpu/pipeline/lexer"
	"github.com/gogpu/pipeline/parser"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen)
	tokColor  = color.New(color.FgCyan)
	promptFmt = color.New(color.FgYellow)
)

func main() {
	fmt.Println("pipeline-repl: enter a pipeline declaration, Ctrl-D to exit")

	scanner := bufio.NewScanner(os.Stdin)
	var buf strings.Builder

	promptFmt.Print("pipeline> ")
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteString("\n")

		if strings.Count(buf.String(), "{") > strings.Count(buf.String(), "}") {
			promptFmt.Print("       -> ")
			continue
		}

		evaluate(buf.String())
		buf.Reset()
		promptFmt.Print("pipeline> ")
	}
	fmt.Println()
}

func evaluate(source string) {
	source = strings.TrimSpace(source)
	if source == "" {
		return
	}

	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		printDiagnostic(err)
		return
	}

	printTokens(tokens)

	p, err := parser.New(source, tokens).ParsePipeline()
	if err != nil {
		printDiagnostic(err)
		return
	}

	okColor.Printf("parsed pipeline %q: %d argument(s), %d result(s), %d statement(s)\n",
		p.Name.Val, len(p.Arguments), len(p.Results), len(p.Block.Statements))
}

func printTokens(tokens []lexer.Token) {
	var parts []string
	for _, t := range tokens {
		if t.Kind == lexer.EOF {
			continue
		}
		parts = append(parts, t.Kind.String())
	}
	tokColor.Printf("tokens: %s\n", strings.Join(parts, " "))
}

func printDiagnostic(err error) {
	if diag, ok := err.(*diagnostic.Error); ok {
		errColor.Println(diag.FormatWithContext())
		return
	}
	errColor.Printf("error: %v\n", err)
}
