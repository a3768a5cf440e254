package lib

// stream visits entries as they are read, queueing only the directories to
// descend into. With a FIFO queue this is breadth-first order.
func (s *walkState) stream(paths []string) error {
	for _, path := range paths {
		switch s.visit(path, PhasePre) {
		case Continue:
			s.push(path, true)
		case Stop:
			return s.destroy()
		}
	}

	for s.pop() {
		s.openDir()
		for s.readDir() {
			name := s.de.name
			switch s.visit(name, PhasePre) {
			case Continue:
				s.push(name, true)
			case Stop:
				return s.destroy()
			}
		}
		if s.gc(true) == Stop {
			break
		}
	}
	return s.destroy()
}

// batch queues all of a directory's entries before visiting any of them.
// Each directory's children form one batch, which can be sorted, and in
// depth-first mode is explored before the rest of the queue.
func (s *walkState) batch(paths []string) error {
	for _, path := range paths {
		s.push(path, false)
	}

	for s.pop() {
		action := s.visit("", PhasePre)
		if action == Stop {
			break
		}
		file := s.file
		if s.info.Type != TypeError {
			file.typ = s.info.Type
		}
		s.fillID(file)

		if action == Prune {
			if s.gc(true) == Stop {
				break
			}
			continue
		}
		file.descend = true

		s.batchStart()
		s.openDir()
		for s.readDir() {
			s.push(s.de.name, false)
		}
		s.batchFinish()

		if s.gc(true) == Stop {
			break
		}
	}
	return s.destroy()
}
