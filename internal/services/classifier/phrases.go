package classifier

import "regexp"

// Agent-indicative phrases: scripted call-center language. Greetings with
// self-identification, offers, price and delivery talk, order confirmation,
// formal closings.
var agentPhrases = compileAll([]string{
	// Greetings & self-identification
	`thank you for calling`,
	`my name is`,
	`this is \w+ (speaking|from)`,
	`i'?m calling (you )?(from|about|regarding)`,
	`calling on behalf of`,
	`how (can|may) i help`,
	`is this a good time`,
	// Offers & sales language
	`i (can|could|would like to) offer`,
	`special (offer|promotion|deal)`,
	`promotion(al)?`,
	`discount`,
	`free (shipping|delivery|gift|trial)`,
	`best ?seller`,
	`limited time`,
	// Prices & payment
	`\$\s*\d+`,
	`\d+\s*(dollars|euros|pounds)`,
	`per (month|year|package|unit)`,
	`(costs?|priced at)`,
	`payment (method|plan|details)`,
	`cash on delivery`,
	// Order & delivery
	`(shipping|delivery) (address|details|date)`,
	`order (number|confirmation)`,
	`confirm (your|the) order`,
	`your (order|package|parcel) (will|should)`,
	`courier`,
	`track(ing)? (number|link)`,
	// Verification & formal phrases
	`(can|could|may) i (get|have|confirm) your`,
	`for (verification|security) purposes`,
	`is (that|everything) correct`,
	`do you agree`,
	`terms and conditions`,
	`warranty`,
	`refund policy`,
	// Closings
	`(is there )?anything else i can`,
	`thank you for your (time|patience)`,
	`have a (great|nice|wonderful) (day|evening)`,
	`thank you for (choosing|shopping)`,
})

// Short acknowledgement-only utterances: customer-typical backchannel.
var ackPhrases = compileAll([]string{
	`^(yes|yeah|yep|yup)[.,!?]?$`,
	`^(no|nope|nah)[.,!?]?$`,
	`^(ok(ay)?|alright|all right)[.,!?]?$`,
	`^(mm-?hm+|uh-?huh|hm+)[.,!?]?$`,
	`^(right|sure|fine|exactly|correct)[.,!?]?$`,
	`^(i see|i understand|got it|makes sense)[.,!?]?$`,
	`^(hello|hi|hey)[.,!?]?$`,
	`^(thanks|thank you)[.,!?]?$`,
	`^(how much|really|and)[.,!?]?$`,
	`^(well|so|um+|uh+|er+)[.,!?]?$`,
})

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// countMatches returns how many patterns match anywhere in text.
func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}
