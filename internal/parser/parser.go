package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Card files are plain markdown with labelled blocks:
//
//	F: front of the card (may continue over following lines)
//	B: back of the card
//	T: comma, separated, tags
//	---
//
// A new F: line or a --- separator ends the current card. Tags are
// optional; a card without a front is dropped.
const (
	frontPrefix = "F:"
	backPrefix  = "B:"
	tagsPrefix  = "T:"
	separator   = "---"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingTags
)

// ParsedCard is a card as read from a file, before it gets a database
// identity or a fingerprint.
type ParsedCard struct {
	Front    string
	Back     string
	TagNames []string
}

// ParseFile reads the file at path and extracts all cards.
func ParseFile(path string) ([]ParsedCard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]ParsedCard, error) {
	scanner := bufio.NewScanner(r)
	var cards []ParsedCard
	var current ParsedCard
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch currentState {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		case readingTags:
			current.TagNames = splitTags(content)
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if strings.TrimSpace(current.Front) != "" {
			cards = append(cards, current)
		}
		current = ParsedCard{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, frontPrefix):
			flushBlock()
			if currentState != seeking { // a new front always starts a new card
				finishCard()
			}
			currentState = readingFront
			block = append(block, trimLabel(line, frontPrefix))
		case strings.HasPrefix(line, backPrefix):
			flushBlock()
			currentState = readingBack
			block = append(block, trimLabel(line, backPrefix))
		case strings.HasPrefix(line, tagsPrefix):
			flushBlock()
			currentState = readingTags
			block = append(block, trimLabel(line, tagsPrefix))
		default:
			if currentState != seeking {
				block = append(block, line)
			}
		}
	}

	finishCard() // the last card in the file has no trailing separator

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func trimLabel(line, prefix string) string {
	content := line[len(prefix):]
	return strings.TrimPrefix(content, " ")
}

func splitTags(content string) []string {
	var tags []string
	for _, part := range strings.Split(content, ",") {
		if name := strings.TrimSpace(part); name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}
