package quiz

import "fmt"

// Instruction returns the steering instruction for the model for question idx
// given the user's raw answer. Keyword branching happens here so the model only
// ever sees one direct instruction. Unknown indices get a generic one.
func Instruction(idx int, rawAnswer string) string {
	a := newAnswer(rawAnswer)
	switch idx {
	case 0:
		if a.has("savana") {
			return `Say "savana?? that's literally the cutest name ever" and be a little flirty. Example: "omg savana?? that's literally the cutest name ever 🥰😍"`
		}
		return fmt.Sprintf(`Say hi, repeat her name "%[1]s", and say it's a nice name. Example: "hey %[1]s!! that's such a cool name 😊✨"`, a.raw)
	case 1:
		return fmt.Sprintf(`Comment positively on how they start their day with "%[1]s". Example: "%[1]s?? honestly same that's elite morning energy 😂🙌"`, a.raw)
	case 2:
		switch {
		case a.fearsLate():
			return `Say "somehow I knew that..." and joke about being late. Example: "somehow I knew that... 😭💀 being late is literally my worst nightmare too"`
		case a.fearsHeights():
			return `Say you totally relate to fearing heights. Example: "omg heights are terrifying fr like why would anyone go up there 😭🫣"`
		default:
			return `React to their fear and say something relatable. Example: "honestly both are scary I feel you on that 😂😭"`
		}
	case 3:
		if a.has("purple") {
			return `Say "great minds think alike" because purple is your favorite too. Example: "purple?? great minds think alike that's my fav too 😍💜"`
		}
		return `Joke that you totally pictured her as a PURPLE person. You MUST mention purple. Example: "wait not purple?? I totally had you pegged as a PURPLE person 😂💜"`
	case 4:
		if a.has("panko") {
			return `Say you've heard SO many good things about panko. You MUST mention panko by name. Example: "omg panko?? I've heard so many good things about him 🥺💕 what a cutie"`
		}
		return `React warmly to their pet answer and compliment their pet names. Example: "awww that's so cute I can't handle it 🥺💕"`
	case 5:
		return fmt.Sprintf(`Say "yummers" and praise their choice of %[1]s. Example: "yummers!! %[1]s is literally the best last meal choice 🤤😋"`, a.food())
	case 6:
		return `Say they seem like a morpeko type of girl and react to their choice. Example: "ooo I could totally see that but lowkey you give morpeko vibes 😂⚡"`
	case 7:
		if a.waterFirst() {
			return `Say "how does anybody do the other way?!" because water first is correct. Example: "EXACTLY how does anybody do the other way?!?! 😤🙌 water first gang"`
		}
		return `Say "the audacity" and "I can still be friends with you but just know... you are incorrect". Example: "the AUDACITY 😤 I can still be friends with you but just know... you are incorrect 😂"`
	case 8:
		return `Playfully question their choice then say "what's wrong with the other???". Example: "wait really?? I respect it but like... what's wrong with the other??? 😂🤔"`
	case 9:
		switch {
		case a.choseTaiwan():
			return `Say "oops haha" about Taiwan in a playful way. Example: "oops haha 😅🫣 I mean... great choice tho"`
		case a.choseChina():
			return `Say "CHINA NUMBA 1!!!" enthusiastically. Example: "CHINA NUMBA 1!!! 🇨🇳🔥 let's gooo"`
		default:
			return `React positively and say you love that place too. Example: "ooo great choice I love that place too 🔥🌏"`
		}
	case 10:
		if a.picksIgnorance() {
			return `Say they're wrong and the first man (who knows about trebuchets) is superior. Example: "nah you're wrong the trebuchet man is SUPERIOR 🏆💪 knowledge is power"`
		}
		return `Say the trebuchet man is superior and trebuchets are objectively better. Example: "CORRECT the trebuchet man is SUPERIOR 🏆💪 trebuchets are objectively better in every way"`
	default:
		return `React casually and positively. Example: "haha nice answer tbh 😄✨"`
	}
}
