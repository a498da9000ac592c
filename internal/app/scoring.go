package app

// basePoints is awarded for every correct answer.
const basePoints = 500

// orderBonus[n] is the bonus for a correct answer preceded by n other correct
// answers to the same question. Later correct answers get tailBonus.
var orderBonus = [...]int{500, 400, 300, 200, 100, 90, 80, 70, 60, 50}

const tailBonus = 25

func bonusFor(priorCorrect int) int {
	if priorCorrect < 0 {
		priorCorrect = 0
	}
	if priorCorrect < len(orderBonus) {
		return orderBonus[priorCorrect]
	}
	return tailBonus
}

// awardFor returns the points for one answer given how many correct answers
// were already recorded for the question, in arrival order.
func awardFor(correct bool, priorCorrect int) int {
	if !correct {
		return 0
	}
	return basePoints + bonusFor(priorCorrect)
}
