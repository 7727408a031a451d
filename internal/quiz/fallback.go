package quiz

import (
	"fmt"
	"math/rand/v2"
)

// Rand is the random source used to pick a fallback template.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator.
var DefaultRand Rand = globalRand{}

// Fallback picks one canned reply for question idx uniformly from its pool.
func Fallback(rng Rand, idx int, rawAnswer string) string {
	if rng == nil {
		rng = DefaultRand
	}
	pool := Fallbacks(idx, rawAnswer)
	return pool[rng.IntN(len(pool))]
}

// Fallbacks returns the full pool of canned replies for question idx. The pool
// is never empty.
func Fallbacks(idx int, rawAnswer string) []string {
	a := newAnswer(rawAnswer)
	s := a.raw
	switch idx {
	case 0:
		return []string{
			fmt.Sprintf("hey %s!! that's such a cool name 😊", s),
			fmt.Sprintf("%s!! love that name fr", s),
			fmt.Sprintf("omg hi %s!! welcome 🥰", s),
			fmt.Sprintf("%s is a vibe, I love it", s),
		}
	case 1:
		return []string{
			fmt.Sprintf("ooo nice, %s is a solid way to start the day tbh", s),
			"wait really?? that's actually goals ngl",
			fmt.Sprintf("honestly %s sounds so cozy, I need to try that", s),
			fmt.Sprintf("love that for you, %s is elite morning energy", s),
		}
	case 2:
		switch {
		case a.fearsLate():
			return []string{
				"omg same, being late gives me so much anxiety 😭",
				"being late is the WORST I literally can't function 😩",
				"ok being late is scarier than heights and I will die on this hill",
			}
		case a.fearsHeights():
			return []string{
				"heights are terrifying fr, like why would I go up there 😭",
				"nah heights are no joke, I get dizzy just looking down 💀",
				"omg same, I avoid tall things at ALL costs",
			}
		default:
			return []string{
				"lol fair both are pretty scary tbh 😂",
				"honestly valid, they're both terrifying in different ways",
				"ok mood, I'd probably say both too ngl",
			}
		}
	case 3:
		return []string{
			fmt.Sprintf("%s?? interesting... I kinda pictured you as more of a purple person ngl 😂", s),
			fmt.Sprintf("ooo %s is a solid color choice, you have taste", s),
			fmt.Sprintf("wait really %s?? I can totally see that actually", s),
			fmt.Sprintf("%s is underrated honestly, good pick 🎨", s),
		}
	case 4:
		return []string{
			"awww thats so cute!! love that 🥺",
			"WAIT that is adorable, I can't handle it 😭",
			"omg stop that's the cutest thing I've heard today",
			"I love that so much, 10/10 answer 🥺",
		}
	case 5:
		food := a.food()
		return []string{
			fmt.Sprintf("oooo yummers!! %s is a solid pick fr", food),
			fmt.Sprintf("%s?? ELITE taste honestly, I approve 🤤", food),
			fmt.Sprintf("ok %s as a last meal is genuinely genius", food),
			fmt.Sprintf("you picked %s?? we would get along so well tbh", food),
		}
	case 6:
		return []string{
			fmt.Sprintf("%s?? thats a good one tbh, solid choice", s),
			fmt.Sprintf("ooo %s type is so cool, I respect that", s),
			fmt.Sprintf("%s!! I honestly could see that for you", s),
			fmt.Sprintf("wait %s type is lowkey overpowered tho 👀", s),
		}
	case 7:
		if a.waterFirst() {
			return []string{
				"THANK YOU omg you are correct and there is no debate",
				"water first gang!! this is the only right answer 💯",
				"exactly, water first is scientifically superior and I will not hear otherwise",
			}
		}
		return []string{
			"toothpaste first?? ok you're brave and also wrong but I respect the chaos 😂",
			"we can still be friends but just know... you are incorrect 😤",
			"the audacity... toothpaste first... I'm shaking my head rn",
		}
	case 8:
		return []string{
			"hmm interesting choice... I respect that tho 🤔",
			"honestly both options are wild but I respect your honesty 😂",
			"ok this question is a trap but you handled it well",
			"lmaooo that's a bold answer, I respect the confidence",
		}
	case 9:
		return []string{
			"of course, who doesn't love it there honestly 🤷",
			"honestly so valid, the food alone makes it S tier",
			"the culture is incredible tbh, great answer",
			"you have excellent taste, just saying 🤌",
		}
	case 10:
		if a.picksIgnorance() {
			return []string{
				"the mystery is attractive I guess... but the first type is superior and I stand by that",
				"hmm ok ignorance is bliss I guess 😂 but the trebuchet guy is objectively better",
				"bold choice... the first type is still superior but I respect your vibe",
			}
		}
		return []string{
			"CORRECT the trebuchet knowledge man is superior in every way 🏆",
			"YES finally someone gets it, a man who knows siege weapons is just built different",
			"absolutely, that man is a 10/10 no debate allowed",
		}
	default:
		return []string{
			"haha nice answer tbh 😄",
			"love that response honestly",
			"ok I vibe with that answer fr",
		}
	}
}
